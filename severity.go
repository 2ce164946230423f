// Copyright 2026 The Logvisor Authors
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

package logvisor

import (
	"strings"
)

// Severity is a coarse classification of a single line of child output,
// derived from the bracketed tag the line starts with.
type Severity int

const (
	SeverityDefault Severity = iota
	SeverityOK
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "default"
}

// ParseSeverity is the inverse of String.  Unrecognized names map to
// SeverityDefault.
func ParseSeverity(name string) Severity {
	switch name {
	case "ok":
		return SeverityOK
	case "warning":
		return SeverityWarning
	case "error":
		return SeverityError
	}
	return SeverityDefault
}

// MarshalText lets Severity travel as its name in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

type tagRule struct {
	prefix   string
	severity Severity
	closed   bool // the tag ends with ']' and is stripped from the text
}

// Note that "[Stopped" is matched open-ended, so that "[Stopped]" and
// "[Stopped by watchdog]" alike are errors.  The misspelled terminated tag
// is what older child programs actually print.
var tagRules = []tagRule{
	{"[OK]", SeverityOK, true},
	{"[Started]", SeverityOK, true},
	{"[Feedback]", SeverityOK, true},
	{"[Warning]", SeverityWarning, true},
	{"[Waiting]", SeverityWarning, true},
	{"[Error]", SeverityError, true},
	{"[Terminated_by_user]", SeverityError, true},
	{"[Termiated_by_user]", SeverityError, true},
	{"[Stopped", SeverityError, false},
}

func matchTag(line string) (tagRule, string, bool) {
	s := strings.TrimLeft(line, " \t\r\n\v\f")
	for _, r := range tagRules {
		if strings.HasPrefix(s, r.prefix) {
			return r, s, true
		}
	}
	return tagRule{}, s, false
}

// Classify returns the severity of a raw line of output.  Leading
// whitespace is ignored, matching is case sensitive.  It never fails; lines
// without a known tag are SeverityDefault.
func Classify(line string) Severity {
	r, _, ok := matchTag(line)
	if !ok {
		return SeverityDefault
	}
	return r.severity
}

// splitTag classifies the line and also returns the message with the
// recognized tag removed.  Open-ended tags are removed through the closing
// bracket, if there is one.
func splitTag(line string) (Severity, string) {
	r, s, ok := matchTag(line)
	if !ok {
		return SeverityDefault, strings.TrimSpace(s)
	}
	rest := s[len(r.prefix):]
	if !r.closed {
		if i := strings.IndexByte(rest, ']'); i >= 0 {
			rest = rest[i+1:]
		} else {
			// No closing bracket, keep the words after the tag.
			rest = strings.TrimPrefix(rest, "...")
		}
	}
	return r.severity, strings.TrimSpace(rest)
}
