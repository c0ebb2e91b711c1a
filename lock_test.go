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
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// A PID well above any kernel's pid_max.
const deadPid = 0x7ffffff0

// close drops the descriptor, which is how the lock is released when a
// process exits.  Only tests need to do it while staying alive.
func (lk *InstanceLock) close() {
	lk.file.Close()
	lk.held = false
}

func openLock(t *testing.T, path string) *InstanceLock {
	lk, e := OpenInstanceLock(path)
	if e != nil {
		t.Fatalf("open lock: %v", e)
	}
	lk.SetLogger(log.New(&testLog{t}, "", 0))
	return lk
}

func TestInstanceLockOpen(t *testing.T) {
	Convey("Opening a lock file", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")

		Convey("Creates it owner read-write only", func() {
			lk := openLock(t, path)
			defer lk.close()
			info, e := os.Stat(path)
			So(e, ShouldBeNil)
			So(info.Mode().Perm(), ShouldEqual, os.FileMode(0600))
			So(lk.Held(), ShouldBeFalse)
			So(lk.Path(), ShouldEqual, path)
		})

		Convey("Does not truncate", func() {
			So(os.WriteFile(path, []byte("42\n"), 0600), ShouldBeNil)
			lk := openLock(t, path)
			defer lk.close()
			pid, e := lk.ReadOwnerPid()
			So(e, ShouldBeNil)
			So(pid, ShouldEqual, 42)
		})

		Convey("Fails when the directory is missing", func() {
			lk, e := OpenInstanceLock(filepath.Join(path, "nope", "launcher.pid"))
			So(lk, ShouldBeNil)
			So(errors.Is(e, ErrLockFileIO), ShouldBeTrue)
		})
	})
}

func TestInstanceLockExclusion(t *testing.T) {
	Convey("Two handles on one lock file", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")
		a := openLock(t, path)
		b := openLock(t, path)
		defer a.close()
		defer b.close()

		So(a.Acquire(), ShouldBeTrue)
		So(a.Held(), ShouldBeTrue)
		So(a.Acquire(), ShouldBeTrue)
		So(b.Acquire(), ShouldBeFalse)
		So(b.Held(), ShouldBeFalse)

		Convey("The holder does not see itself running", func() {
			running, e := a.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeFalse)
			So(a.Held(), ShouldBeTrue)
		})

		Convey("A live recorded owner is running", func() {
			So(a.RecordOwnership(os.Getpid()), ShouldBeNil)
			running, e := b.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeTrue)
			pid, e := b.ReadOwnerPid()
			So(e, ShouldBeNil)
			So(pid, ShouldEqual, os.Getpid())
		})

		Convey("A dead recorded owner still counts while the lock is held", func() {
			So(a.RecordOwnership(deadPid), ShouldBeNil)
			running, e := b.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeTrue)
		})

		Convey("An owner that has not recorded itself yet is running", func() {
			running, e := b.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeTrue)
		})

		Convey("A garbled record is an error", func() {
			So(os.WriteFile(path, []byte("garbage\n"), 0600), ShouldBeNil)
			running, e := b.IsRunning()
			So(running, ShouldBeFalse)
			So(errors.Is(e, ErrStalePidFormat), ShouldBeTrue)
		})

		Convey("Closing the holder frees the lock", func() {
			So(a.RecordOwnership(os.Getpid()), ShouldBeNil)
			a.close()
			running, e := b.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeFalse)
			So(b.Held(), ShouldBeTrue)
		})
	})
}

func TestInstanceLockStaleRecord(t *testing.T) {
	Convey("An unlocked file naming a dead process", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")
		So(os.WriteFile(path, []byte(strconv.Itoa(deadPid)+"\n"), 0600), ShouldBeNil)
		lk := openLock(t, path)
		defer lk.close()

		running, e := lk.IsRunning()
		So(e, ShouldBeNil)
		So(running, ShouldBeFalse)
		So(lk.Held(), ShouldBeTrue)

		So(lk.RecordOwnership(os.Getpid()), ShouldBeNil)
		pid, e := lk.ReadOwnerPid()
		So(e, ShouldBeNil)
		So(pid, ShouldEqual, os.Getpid())
	})
}

func TestInstanceLockRecord(t *testing.T) {
	Convey("Recording ownership", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")
		lk := openLock(t, path)
		defer lk.close()

		Convey("Requires the lock", func() {
			e := lk.RecordOwnership(1234)
			So(errors.Is(e, ErrLockNotHeld), ShouldBeTrue)
			b, _ := os.ReadFile(path)
			So(len(b), ShouldEqual, 0)
		})

		Convey("Is idempotent", func() {
			So(lk.Acquire(), ShouldBeTrue)
			So(lk.RecordOwnership(1234), ShouldBeNil)
			So(lk.RecordOwnership(1234), ShouldBeNil)
			b, e := os.ReadFile(path)
			So(e, ShouldBeNil)
			So(string(b), ShouldEqual, "1234\n")
		})

		Convey("Replaces a longer record", func() {
			So(lk.Acquire(), ShouldBeTrue)
			So(lk.RecordOwnership(123456), ShouldBeNil)
			So(lk.RecordOwnership(7), ShouldBeNil)
			b, e := os.ReadFile(path)
			So(e, ShouldBeNil)
			So(string(b), ShouldEqual, "7\n")
		})

		Convey("Reading an empty file fails", func() {
			_, e := lk.ReadOwnerPid()
			So(errors.Is(e, ErrStalePidFormat), ShouldBeTrue)
		})
	})
}

// TestLockHelperProcess is not a real test.  It is run in a child process
// by the tests below, to contend for the lock from another process.
func TestLockHelperProcess(t *testing.T) {
	path := os.Getenv("LAUNCHER_TEST_LOCK")
	if path == "" {
		return
	}
	lk, e := OpenInstanceLock(path)
	if e != nil {
		fmt.Printf("error %v\n", e)
		os.Exit(1)
	}
	running, e := lk.IsRunning()
	switch {
	case e != nil:
		fmt.Printf("error %v\n", e)
		os.Exit(1)
	case running:
		fmt.Println("running")
		os.Exit(0)
	}
	if e := lk.RecordOwnership(os.Getpid()); e != nil {
		fmt.Printf("error %v\n", e)
		os.Exit(1)
	}
	fmt.Println("owner")
	// Hold the lock until the parent closes our stdin.
	io.Copy(io.Discard, os.Stdin)
	os.Exit(0)
}

type helper struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

func startHelper(t *testing.T, path string) *helper {
	cmd := exec.Command(os.Args[0], "-test.run=^TestLockHelperProcess$")
	cmd.Env = append(os.Environ(), "LAUNCHER_TEST_LOCK="+path)
	cmd.Stderr = os.Stderr
	stdin, e := cmd.StdinPipe()
	if e != nil {
		t.Fatalf("stdin pipe: %v", e)
	}
	stdout, e := cmd.StdoutPipe()
	if e != nil {
		t.Fatalf("stdout pipe: %v", e)
	}
	if e := cmd.Start(); e != nil {
		t.Fatalf("start helper: %v", e)
	}
	return &helper{cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}
}

func (h *helper) result() string {
	line, _ := h.out.ReadString('\n')
	return strings.TrimSpace(line)
}

func (h *helper) stop() error {
	h.stdin.Close()
	return h.cmd.Wait()
}

func TestInstanceLockAcrossProcesses(t *testing.T) {
	Convey("Another process holding the lock", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")
		h := startHelper(t, path)
		So(h.result(), ShouldEqual, "owner")

		lk := openLock(t, path)
		defer lk.close()
		running, e := lk.IsRunning()
		So(e, ShouldBeNil)
		So(running, ShouldBeTrue)
		pid, e := lk.ReadOwnerPid()
		So(e, ShouldBeNil)
		So(pid, ShouldEqual, h.cmd.Process.Pid)

		Convey("Is no longer running once it exits", func() {
			So(h.stop(), ShouldBeNil)
			running, e := lk.IsRunning()
			So(e, ShouldBeNil)
			So(running, ShouldBeFalse)
		})

		Reset(func() {
			h.stop()
		})
	})

	Convey("Processes racing for a fresh lock", t, func() {
		path := filepath.Join(t.TempDir(), "launcher.pid")
		var helpers []*helper
		for i := 0; i < 4; i++ {
			helpers = append(helpers, startHelper(t, path))
		}
		owners := 0
		for _, h := range helpers {
			switch r := h.result(); r {
			case "owner":
				owners++
			case "running":
			default:
				t.Errorf("unexpected helper result %q", r)
			}
		}
		for _, h := range helpers {
			So(h.stop(), ShouldBeNil)
		}
		So(owners, ShouldEqual, 1)
	})
}
