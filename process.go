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
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// LaunchSpec is the command line and environment of the managed process.
// Args[0] is the program, which is looked up in PATH if it has no slash.
type LaunchSpec struct {
	Args []string
	Env  []string
}

func (s *LaunchSpec) String() string {
	return strings.Join(s.Args, " ")
}

// ExecFunc replaces the running program.  It has the shape of
// syscall.Exec, except that argv0 is the name to look up, not a path.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Exec searches PATH for argv0, and replaces the current process image with
// it.  It only returns if that fails.
func Exec(argv0 string, argv []string, envv []string) error {
	path, e := exec.LookPath(argv0)
	if e != nil {
		return e
	}
	return unix.Exec(path, argv, envv)
}

// DetachStdin points standard input at the null device, so that a long
// running process never waits on a terminal.
func DetachStdin() error {
	f, e := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if e != nil {
		return e
	}
	defer f.Close()
	return unix.Dup2(int(f.Fd()), int(os.Stdin.Fd()))
}
