// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package launcher

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// DefaultRuntime is the program the managed application runs under.
const DefaultRuntime = "java"

// Options adjust how a Launcher starts the managed process.  The zero
// value is fine.
type Options struct {
	Runtime    string      // Runtime program, DefaultRuntime if empty
	Properties *Properties // Extra -D properties, after the derived ones
	Logger     *log.Logger // Diagnostics; discarded if nil

	// Exec and Stdin default to Exec and DetachStdin.  They exist so
	// that the hand-off can be observed without losing the process.
	Exec  ExecFunc
	Stdin func() error
}

// Launcher starts the managed process for one install tree, unless it is
// already running.
type Launcher struct {
	layout  Layout
	lock    *InstanceLock
	runtime string
	props   *Properties
	logger  *log.Logger
	exec    ExecFunc
	stdin   func() error
}

// New creates the directory for the PID file, opens it, and makes a first
// attempt at the lock.
func New(layout Layout, opts Options) (*Launcher, error) {
	l := &Launcher{
		layout:  layout,
		runtime: opts.Runtime,
		props:   NewProperties(),
		logger:  opts.Logger,
		exec:    opts.Exec,
		stdin:   opts.Stdin,
	}
	if l.runtime == "" {
		l.runtime = DefaultRuntime
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard, "", 0)
	}
	if l.exec == nil {
		l.exec = Exec
	}
	if l.stdin == nil {
		l.stdin = DetachStdin
	}
	l.props.Merge(opts.Properties)

	if e := MakeDirs(filepath.Dir(layout.PidFile)); e != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	lk, e := OpenInstanceLock(layout.PidFile)
	if e != nil {
		return nil, e
	}
	lk.SetLogger(l.logger)
	lk.Acquire()
	l.lock = lk
	return l, nil
}

// Layout returns a copy of the install layout in use.
func (l *Launcher) Layout() Layout {
	return l.layout
}

// Command builds the command line and environment for the managed
// process from the configuration files.  It changes nothing.
func (l *Launcher) Command() (*LaunchSpec, error) {
	boot, e := ReadProperties(l.layout.BootstrapConfig)
	if e != nil {
		return nil, e
	}
	mainClass, e := boot.Require(PropMainClass)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", l.layout.BootstrapConfig, e)
	}
	opts, e := ReadTokens(l.layout.RuntimeConfig)
	if e != nil {
		return nil, e
	}

	props := NewProperties()
	props.Set(PropLogLevelsFile, l.layout.LogConfig)
	props.Set(PropConfig, l.layout.AppConfig)
	props.Merge(l.props)

	args := []string{l.runtime, "-classpath", l.layout.ClassPath()}
	args = append(args, opts...)
	args = append(args, props.Flags()...)
	args = append(args, mainClass)

	return &LaunchSpec{Args: args, Env: os.Environ()}, nil
}

// Status reports whether an instance is running, and if so its PID.  The
// PID is zero if the owner has not recorded it yet.
func (l *Launcher) Status() (bool, int, error) {
	running, e := l.lock.IsRunning()
	if e != nil || !running {
		return false, 0, e
	}
	pid, e := l.lock.ReadOwnerPid()
	if e != nil {
		return true, 0, nil
	}
	return true, pid, nil
}

// Run starts the managed process in place of this one, unless an instance
// is already running, in which case it returns nil having done nothing.
// On success the real Exec never returns.
func (l *Launcher) Run() error {
	running, pid, e := l.Status()
	if e != nil {
		return e
	}
	if running {
		l.logger.Printf("Already running as %d", pid)
		return nil
	}

	spec, e := l.Command()
	if e != nil {
		return e
	}
	if e := MakeDirs(l.layout.Base); e != nil {
		return e
	}
	if e := os.Chdir(l.layout.Base); e != nil {
		return e
	}
	if e := l.lock.RecordOwnership(os.Getpid()); e != nil {
		return e
	}
	if e := l.stdin(); e != nil {
		return fmt.Errorf("detaching stdin: %w", e)
	}
	return l.handOff(spec)
}

func (l *Launcher) handOff(spec *LaunchSpec) error {
	if e := l.lock.inherit(); e != nil {
		return fmt.Errorf("%w: %v", ErrLaunchExec, e)
	}
	l.logger.Printf("Launching %s", spec)
	if e := l.exec(spec.Args[0], spec.Args, spec.Env); e != nil {
		return fmt.Errorf("%w: %s: %v", ErrLaunchExec, spec.Args[0], e)
	}
	return nil
}
