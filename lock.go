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
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// InstanceLock is the PID file of an install tree, together with an
// advisory exclusive lock on it.  Holding the lock is what makes a process
// the one instance; the PID written into the file just says who that is.
//
// There is no Unlock.  The lock goes away when the process holding it
// exits (or, after exec, when the managed process exits), which is the only
// time it is safe to give it up.
//
// An InstanceLock is not safe for concurrent use.  flock does not keep two
// goroutines sharing the same descriptor apart, so callers using it from
// more than one goroutine must serialize access themselves.
type InstanceLock struct {
	path   string
	file   *os.File
	held   bool
	logger *log.Logger
}

// OpenInstanceLock opens the PID file for reading and writing, creating
// it (mode 0600) if it does not exist.  Existing content is left alone.
// The lock is not acquired.
func OpenInstanceLock(path string) (*InstanceLock, error) {
	f, e := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if e != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	return &InstanceLock{
		path:   path,
		file:   f,
		logger: log.New(io.Discard, "", 0),
	}, nil
}

func (lk *InstanceLock) Path() string {
	return lk.path
}

// SetLogger sets where diagnostics, such as a stale owner record, go.
func (lk *InstanceLock) SetLogger(logger *log.Logger) {
	lk.logger = logger
}

// Acquire tries, without blocking, to take the exclusive lock.  Any
// failure at all, contention or otherwise, leaves the lock not held.
// Calling it again while holding the lock is harmless.
func (lk *InstanceLock) Acquire() bool {
	e := unix.Flock(int(lk.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	lk.held = e == nil
	return lk.held
}

// Held reports the result of the last Acquire.
func (lk *InstanceLock) Held() bool {
	return lk.held
}

// IsRunning reports whether another instance owns the install.  It does
// this by trying to acquire the lock; if that works, nobody else has it,
// and this process now holds it.  Otherwise the recorded PID is probed.
//
// A recorded PID that is malformed is an error, not a reason to carry on.
// A missing one is not: an empty file means the owner has taken the lock
// but not yet written its PID, and the loser of a start race must see the
// winner as running.
func (lk *InstanceLock) IsRunning() (bool, error) {
	if lk.Acquire() {
		return false, nil
	}
	line, e := lk.readLine()
	if e != nil {
		return false, e
	}
	if line == "" {
		lk.logger.Printf("Lock %s is held, owner not yet recorded", lk.path)
		return true, nil
	}
	pid, e := parsePid(line)
	if e != nil {
		return false, e
	}
	switch e := unix.Kill(pid, 0); e {
	case nil, unix.EPERM:
		return true, nil
	case unix.ESRCH:
		// The lock, not the PID, decides.
		lk.logger.Printf("Lock %s is held, but recorded owner %d is gone",
			lk.path, pid)
		return true, nil
	default:
		return false, fmt.Errorf("probing process %d: %w", pid, e)
	}
}

func (lk *InstanceLock) readLine() (string, error) {
	if _, e := lk.file.Seek(0, io.SeekStart); e != nil {
		return "", fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	line, e := bufio.NewReader(lk.file).ReadString('\n')
	if e != nil && e != io.EOF {
		return "", fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	return strings.TrimSpace(line), nil
}

func parsePid(line string) (int, error) {
	pid, e := strconv.Atoi(line)
	if e != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrStalePidFormat, line)
	}
	return pid, nil
}

// ReadOwnerPid returns the PID recorded in the first line of the file.
func (lk *InstanceLock) ReadOwnerPid() (int, error) {
	line, e := lk.readLine()
	if e != nil {
		return 0, e
	}
	return parsePid(line)
}

// RecordOwnership replaces the content of the file with the PID.  The
// lock must be held; this is the only place the file is ever written.
func (lk *InstanceLock) RecordOwnership(pid int) error {
	if !lk.held {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, lk.path)
	}
	if e := lk.file.Truncate(0); e != nil {
		return fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	if _, e := lk.file.Seek(0, io.SeekStart); e != nil {
		return fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	if _, e := lk.file.WriteString(strconv.Itoa(pid) + "\n"); e != nil {
		return fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	return nil
}

// inherit clears close-on-exec on the lock descriptor, so that the lock
// carries over into the managed process.
func (lk *InstanceLock) inherit() error {
	if _, e := unix.FcntlInt(lk.file.Fd(), unix.F_SETFD, 0); e != nil {
		return fmt.Errorf("%w: %v", ErrLockFileIO, e)
	}
	return nil
}
