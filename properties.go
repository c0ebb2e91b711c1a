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
	"strings"
)

// Well known property names.
const (
	PropMainClass     = "main-class"      // bootstrap: entry point
	PropLogLevelsFile = "log.levels-file" // runtime: logging config
	PropConfig        = "config"          // runtime: application config
)

// Properties is an ordered set of key=value pairs.  Keys keep the position
// of their first appearance; setting a key again replaces its value.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns an empty Properties.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set sets the value for a key.
func (p *Properties) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Lookup returns the value for key, and whether it was present.
func (p *Properties) Lookup(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Get returns the value for key, or the empty string.
func (p *Properties) Get(key string) string {
	return p.values[key]
}

// Require is like Lookup, but a missing key is a configuration error.
func (p *Properties) Require(key string) (string, error) {
	if v, ok := p.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: missing required property %q", ErrConfigParse, key)
}

// Keys returns the keys in order.
func (p *Properties) Keys() []string {
	return copyArray(p.keys)
}

func (p *Properties) Len() int {
	return len(p.keys)
}

// Flags renders the properties as runtime system property options, one
// "-Dkey=value" per key, in order.
func (p *Properties) Flags() []string {
	rv := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		rv = append(rv, fmt.Sprintf("-D%s=%s", k, p.values[k]))
	}
	return rv
}

// Merge sets every property of o in p, in the order of o.
func (p *Properties) Merge(o *Properties) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		p.Set(k, o.values[k])
	}
}

// ParseProperty splits a "key=value" string at the first '='.  Surrounding
// white space is removed from both halves.  The key may not be empty.
func ParseProperty(s string) (string, string, error) {
	idx := strings.Index(s, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("%w: %q is not key=value", ErrConfigParse, s)
	}
	key := strings.TrimSpace(s[:idx])
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has an empty key", ErrConfigParse, s)
	}
	return key, strings.TrimSpace(s[idx+1:]), nil
}

// ReadProperties reads a properties file.  Every line that is not blank
// or a comment must be of the form key=value.
func ReadProperties(path string) (*Properties, error) {
	lines, e := readConfigLines(path)
	if e != nil {
		return nil, e
	}
	p := NewProperties()
	for _, l := range lines {
		k, v, e := ParseProperty(l.text)
		if e != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, l.num, e)
		}
		p.Set(k, v)
	}
	return p, nil
}

func copyArray(src []string) []string {
	rv := make([]string, 0, len(src))
	rv = append(rv, src...)
	return rv
}
