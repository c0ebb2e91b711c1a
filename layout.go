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

package launcher

import (
	"fmt"
	"path/filepath"
)

// Layout is the set of paths making up an install tree.  All paths are
// absolute.  A Layout is computed once at startup, and the Launcher keeps
// its own copy, so later changes by the caller have no effect on it.
type Layout struct {
	Base            string // Root of the install tree
	BootstrapConfig string // bin/config.properties, must name main-class
	RuntimeConfig   string // etc/jvm.config, options for the runtime
	AppConfig       string // etc/config.properties
	LogConfig       string // etc/log.properties
	PidFile         string // var/run/launcher.pid
	LauncherLog     string // var/log/launcher.log
	ServerLog       string // var/log/server.log
	EtcDir          string // etc
}

// RealPath makes path absolute, and resolves any symbolic links in it.
// Components that do not exist yet are kept as given, below the resolved
// part that does.
func RealPath(path string) string {
	if abs, e := filepath.Abs(path); e == nil {
		path = abs
	}
	if resolved, e := filepath.EvalSymlinks(path); e == nil {
		return resolved
	}
	dir := filepath.Dir(path)
	if dir == path {
		return path
	}
	return filepath.Join(RealPath(dir), filepath.Base(path))
}

// NewLayout returns the standard Layout rooted at base.  Every path is
// passed through RealPath.
func NewLayout(base string) *Layout {
	base = RealPath(base)
	l := &Layout{Base: base}
	l.SetEtcDir(filepath.Join(base, "etc"))
	l.BootstrapConfig = RealPath(filepath.Join(base, "bin", "config.properties"))
	l.PidFile = RealPath(filepath.Join(base, "var", "run", "launcher.pid"))
	l.LauncherLog = RealPath(filepath.Join(base, "var", "log", "launcher.log"))
	l.ServerLog = RealPath(filepath.Join(base, "var", "log", "server.log"))
	return l
}

// SetEtcDir moves the configuration directory, and with it the runtime,
// application, and logging configuration files.
func (l *Layout) SetEtcDir(dir string) {
	dir = RealPath(dir)
	l.EtcDir = dir
	l.RuntimeConfig = RealPath(filepath.Join(dir, "jvm.config"))
	l.AppConfig = RealPath(filepath.Join(dir, "config.properties"))
	l.LogConfig = RealPath(filepath.Join(dir, "log.properties"))
}

// ClassPath returns the class path handed to the runtime, which is every
// archive in the lib directory.
func (l *Layout) ClassPath() string {
	return filepath.Join(l.Base, "lib", "*")
}

// FindInstallPath returns the install base for an executable, which is
// the parent of the directory that really holds it (after resolving
// symbolic links).  Typically the executable lives in <base>/bin.
func FindInstallPath(executable string) (string, error) {
	abs, e := filepath.Abs(executable)
	if e != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallPath, executable, e)
	}
	resolved, e := filepath.EvalSymlinks(abs)
	if e != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallPath, executable, e)
	}
	return filepath.Dir(filepath.Dir(resolved)), nil
}

// ResolveLayout finds the install base for the executable, and returns
// the standard Layout for it.  It touches nothing on disk other than to
// resolve links.
func ResolveLayout(executable string) (*Layout, error) {
	base, e := FindInstallPath(executable)
	if e != nil {
		return nil, e
	}
	return NewLayout(base), nil
}
