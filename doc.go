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

// Package launcher provides the bootstrap used to start a managed
// application from an install tree.  It is intended to be the first thing
// run by an init script, a service unit, or an administrator, and to
// disappear as soon as its work is done.
//
// The launcher locates the install tree from its own executable, reads a
// small amount of configuration, makes sure that no other instance of the
// application is already running against the same tree, and then replaces
// itself (via exec) with the application process.  The application
// inherits the PID, the environment, and the lock on the PID file.
//
// Single instance enforcement relies on an advisory flock on the PID file.
// The lock is never explicitly released; the operating system drops it
// when the process holding it exits, however that happens.  The PID stored
// in the file is informational, and the lock is authoritative.
//
// This is not a supervisor.  There is no restart on failure, and no health
// checking beyond a single liveness probe of the recorded PID.
//
package launcher
