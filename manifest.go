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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads as either a Go duration string
// ("1.5s") or a plain number of nanoseconds.
type Duration time.Duration

func parseDuration(s string) (Duration, error) {
	d, e := time.ParseDuration(s)
	return Duration(d), e
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if e := json.Unmarshal(b, &s); e == nil {
		v, e := parseDuration(s)
		if e != nil {
			return e
		}
		*d = v
		return nil
	}
	var n int64
	if e := json.Unmarshal(b, &n); e != nil {
		return fmt.Errorf("bad duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var n64 int64
	if e := n.Decode(&n64); e == nil {
		*d = Duration(n64)
		return nil
	}
	var s string
	if e := n.Decode(&s); e != nil {
		return e
	}
	v, e := parseDuration(s)
	if e != nil {
		return e
	}
	*d = v
	return nil
}

// ProcessManifest describes one managed process.  Manifests are read from
// JSON or YAML files.
type ProcessManifest struct {
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description" yaml:"description"`
	Command     []string `json:"command" yaml:"command"`
	Env         []string `json:"env" yaml:"env"`
	Directory   string   `json:"directory" yaml:"directory"`
	StopTime    Duration `json:"stopTime" yaml:"stopTime"`
	AutoStart   bool     `json:"autoStart" yaml:"autoStart"`
}

func (m ProcessManifest) Validate() error {
	if m.Label == "" {
		return fmt.Errorf("%w: missing label", ErrBadManifest)
	}
	if strings.ContainsAny(m.Label, "/ \t") {
		return fmt.Errorf("%w: %s: label must not contain '/' or spaces", ErrBadManifest, m.Label)
	}
	if len(m.Command) == 0 || m.Command[0] == "" {
		return fmt.Errorf("%w: %s: missing command", ErrBadManifest, m.Label)
	}
	for _, kv := range m.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("%w: %s: bad env entry %q", ErrBadManifest, m.Label, kv)
		}
	}
	if m.StopTime < 0 {
		return fmt.Errorf("%w: %s: negative stopTime", ErrBadManifest, m.Label)
	}
	return nil
}

// NewHandleFromManifest validates the manifest and returns a Stopped handle
// for it.
func NewHandleFromManifest(m ProcessManifest) (*ProcessHandle, error) {
	if e := m.Validate(); e != nil {
		return nil, e
	}
	return NewProcessHandle(m.Label, Command{
		Path:        m.Command[0],
		Args:        m.Command[1:],
		Env:         m.Env,
		Dir:         m.Directory,
		StopTime:    time.Duration(m.StopTime),
		Description: m.Description,
	}), nil
}

func NewManifestFromJson(r io.Reader) (ProcessManifest, error) {
	var m ProcessManifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if e := dec.Decode(&m); e != nil {
		return m, fmt.Errorf("%w: %v", ErrBadManifest, e)
	}
	return m, m.Validate()
}

func NewManifestFromYaml(r io.Reader) (ProcessManifest, error) {
	var m ProcessManifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if e := dec.Decode(&m); e != nil {
		return m, fmt.Errorf("%w: %v", ErrBadManifest, e)
	}
	return m, m.Validate()
}

// LoadManifest reads one manifest file; the extension picks the format.
func LoadManifest(fname string) (ProcessManifest, error) {
	f, e := os.Open(fname)
	if e != nil {
		return ProcessManifest{}, e
	}
	defer f.Close()

	var m ProcessManifest
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".json":
		m, e = NewManifestFromJson(f)
	case ".yaml", ".yml":
		m, e = NewManifestFromYaml(f)
	default:
		return m, fmt.Errorf("%w: %s: unknown manifest type", ErrBadManifest, fname)
	}
	if e != nil {
		return m, fmt.Errorf("%s: %w", fname, e)
	}
	// Relative working directories are relative to the manifest.
	if m.Directory != "" && !filepath.IsAbs(m.Directory) {
		m.Directory = filepath.Join(filepath.Dir(fname), m.Directory)
	}
	return m, nil
}

// LoadManifests reads every manifest in dir, in name order.  Files that
// cannot be loaded are skipped and their errors returned alongside the
// good manifests.  Other files (README, editor backups) are ignored.
func LoadManifests(dir string) ([]ProcessManifest, []error) {
	ents, e := os.ReadDir(dir)
	if e != nil {
		return nil, []error{e}
	}
	var names []string
	for _, ent := range ents {
		if ent.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)

	var ms []ProcessManifest
	var errs []error
	seen := make(map[string]string)
	for _, n := range names {
		fname := filepath.Join(dir, n)
		m, e := LoadManifest(fname)
		if e != nil {
			errs = append(errs, e)
			continue
		}
		if prev, ok := seen[m.Label]; ok {
			errs = append(errs, fmt.Errorf("%s: %w: %s (also in %s)", fname, ErrDuplicateLabel, m.Label, prev))
			continue
		}
		seen[m.Label] = fname
		ms = append(ms, m)
	}
	return ms, errs
}

// NewSupervisorFromManifests builds a Supervisor with one handle per
// manifest.
func NewSupervisorFromManifests(name string, ms []ProcessManifest) (*Supervisor, error) {
	handles := make([]*ProcessHandle, 0, len(ms))
	for _, m := range ms {
		h, e := NewHandleFromManifest(m)
		if e != nil {
			return nil, e
		}
		handles = append(handles, h)
	}
	return NewSupervisor(name, handles...)
}
