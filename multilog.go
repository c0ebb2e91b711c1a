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
	"io"
	"log"
	"slices"
	"strings"
	"sync"
)

// MultiLogger fans log lines out to any number of loggers.  The launcher
// uses it to send its diagnostics to the terminal and to the bootstrap log
// at the same time.  Each contained logger keeps its own prefix and flags.
type MultiLogger struct {
	log     *log.Logger
	loggers []*log.Logger
	lock    sync.Mutex
}

// NewMultiLogger returns a MultiLogger delivering to the given loggers.
// With none, everything is discarded until a destination is added.
func NewMultiLogger(loggers ...*log.Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, logger := range loggers {
		m.AddLogger(logger)
	}
	m.log = log.New(m, "", 0)
	return m
}

// Write delivers each line in b to every logger in turn.  log.Logger
// always hands over whole lines, so no partial line is ever held back.
func (m *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, logger := range m.loggers {
		for _, line := range lines {
			if e := logger.Output(2, line); e != nil {
				return 0, e
			}
		}
	}
	return len(b), nil
}

// AddLogger adds a destination.  Adding the same logger twice does nothing.
func (m *MultiLogger) AddLogger(logger *log.Logger) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !slices.Contains(m.loggers, logger) {
		m.loggers = append(m.loggers, logger)
	}
}

// AddWriter is a shorthand for AddLogger with a new log.Logger on w.
func (m *MultiLogger) AddWriter(w io.Writer, prefix string, flags int) *log.Logger {
	logger := log.New(w, prefix, flags)
	m.AddLogger(logger)
	return logger
}

// Logger returns the logger that writes to every destination.
func (m *MultiLogger) Logger() *log.Logger {
	return m.log
}
