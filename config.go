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
	"bufio"
	"io"
	"os"
	"strings"
)

type configLine struct {
	num  int
	text string
}

// scanLines returns the trimmed lines of r that are neither blank nor
// comments, along with their (one based) line numbers.  Lines may be of
// any length.
func scanLines(r io.Reader) ([]configLine, error) {
	var lines []configLine
	reader := bufio.NewReader(r)
	for num := 1; ; num++ {
		raw, e := reader.ReadString('\n')
		if e != nil && e != io.EOF {
			return nil, e
		}
		text := strings.TrimSpace(raw)
		if len(text) != 0 && !strings.HasPrefix(text, "#") {
			lines = append(lines, configLine{num: num, text: text})
		}
		if e == io.EOF {
			return lines, nil
		}
	}
}

func readConfigLines(path string) ([]configLine, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return scanLines(f)
}

// ReadLines reads a configuration file, and returns each line trimmed of
// surrounding white space.  Blank lines, and lines starting with '#', are
// skipped.  There is no quoting, escaping, or continuation.
func ReadLines(path string) ([]string, error) {
	lines, e := readConfigLines(path)
	if e != nil {
		return nil, e
	}
	rv := make([]string, 0, len(lines))
	for _, l := range lines {
		rv = append(rv, l.text)
	}
	return rv, nil
}

// ReadTokens reads a list of options, one per line, such as the runtime
// options in jvm.config.  The options are passed through as is.
func ReadTokens(path string) ([]string, error) {
	return ReadLines(path)
}
