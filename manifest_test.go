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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, dir, name, content string) string {
	fname := filepath.Join(dir, name)
	if e := os.WriteFile(fname, []byte(content), 0644); e != nil {
		t.Fatal(e)
	}
	return fname
}

func TestManifestJson(t *testing.T) {
	Convey("A JSON manifest decodes", t, func() {
		m, e := NewManifestFromJson(strings.NewReader(`{
			"label": "scale",
			"description": "Weigh station",
			"command": ["python3", "scale.py", "--port", "/dev/ttyUSB0"],
			"env": ["SCALE_ID=4"],
			"stopTime": "1500ms",
			"autoStart": true
		}`))
		So(e, ShouldBeNil)
		So(m.Label, ShouldEqual, "scale")
		So(m.Command, ShouldResemble, []string{"python3", "scale.py", "--port", "/dev/ttyUSB0"})
		So(time.Duration(m.StopTime), ShouldEqual, 1500*time.Millisecond)
		So(m.AutoStart, ShouldBeTrue)

		h, e := NewHandleFromManifest(m)
		So(e, ShouldBeNil)
		So(h.Label(), ShouldEqual, "scale")
		So(h.Description(), ShouldEqual, "Weigh station")
		So(h.StopTime(), ShouldEqual, 1500*time.Millisecond)
		So(h.Command(), ShouldResemble, m.Command)
	})

	Convey("Durations may be given in nanoseconds", t, func() {
		m, e := NewManifestFromJson(strings.NewReader(
			`{"label": "x", "command": ["true"], "stopTime": 2000000000}`))
		So(e, ShouldBeNil)
		So(time.Duration(m.StopTime), ShouldEqual, 2*time.Second)

		b, e := json.Marshal(m.StopTime)
		So(e, ShouldBeNil)
		So(string(b), ShouldEqual, `"2s"`)
	})

	Convey("Defaults fill in what is left out", t, func() {
		m, e := NewManifestFromJson(strings.NewReader(`{"label": "x", "command": ["true"]}`))
		So(e, ShouldBeNil)
		h, _ := NewHandleFromManifest(m)
		So(h.StopTime(), ShouldEqual, DefaultStopTime)
		So(h.Description(), ShouldEqual, "x process: true")
	})

	Convey("Bad manifests are rejected", t, func() {
		for _, s := range []string{
			`{"command": ["true"]}`,
			`{"label": "a b", "command": ["true"]}`,
			`{"label": "a/b", "command": ["true"]}`,
			`{"label": "x"}`,
			`{"label": "x", "command": [""]}`,
			`{"label": "x", "command": ["true"], "env": ["NOEQUALS"]}`,
			`{"label": "x", "command": ["true"], "stopTime": "soon"}`,
			`{"label": "x", "command": ["true"], "stopTime": "-1s"}`,
			`{"label": "x", "command": ["true"], "bogus": 1}`,
			`{"label": `,
		} {
			_, e := NewManifestFromJson(strings.NewReader(s))
			So(e, ShouldNotBeNil)
			So(errors.Is(e, ErrBadManifest), ShouldBeTrue)
		}
	})
}

func TestManifestYaml(t *testing.T) {
	Convey("A YAML manifest decodes", t, func() {
		m, e := NewManifestFromYaml(strings.NewReader(`
label: conveyor
command: [./conveyor, -v]
env:
  - BELT=2
directory: work
stopTime: 3s
`))
		So(e, ShouldBeNil)
		So(m.Label, ShouldEqual, "conveyor")
		So(m.Command, ShouldResemble, []string{"./conveyor", "-v"})
		So(m.Env, ShouldResemble, []string{"BELT=2"})
		So(time.Duration(m.StopTime), ShouldEqual, 3*time.Second)
		So(m.AutoStart, ShouldBeFalse)
	})

	Convey("Unknown YAML keys are rejected", t, func() {
		_, e := NewManifestFromYaml(strings.NewReader("label: x\ncommand: [\"true\"]\nextra: 1\n"))
		So(errors.Is(e, ErrBadManifest), ShouldBeTrue)
	})
}

func TestLoadManifests(t *testing.T) {
	Convey("Given a directory of manifests", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "b.json", `{"label": "b", "command": ["true"]}`)
		writeFile(t, dir, "a.yaml", "label: a\ncommand: [\"true\"]\ndirectory: sub\n")
		writeFile(t, dir, "README.txt", "not a manifest")
		So(os.Mkdir(filepath.Join(dir, "nested.json"), 0755), ShouldBeNil)

		Convey("They load in name order", func() {
			ms, errs := LoadManifests(dir)
			So(errs, ShouldBeEmpty)
			So(len(ms), ShouldEqual, 2)
			So(ms[0].Label, ShouldEqual, "a")
			So(ms[0].Directory, ShouldEqual, filepath.Join(dir, "sub"))
			So(ms[1].Label, ShouldEqual, "b")

			s, e := NewSupervisorFromManifests("plant", ms)
			So(e, ShouldBeNil)
			So(s.Labels(), ShouldResemble, []string{"a", "b"})
		})

		Convey("Bad and duplicate manifests are reported and skipped", func() {
			writeFile(t, dir, "c.yml", "label: b\ncommand: [\"true\"]\n")
			writeFile(t, dir, "d.json", `{"label": "d"}`)
			ms, errs := LoadManifests(dir)
			So(len(ms), ShouldEqual, 2)
			So(len(errs), ShouldEqual, 2)
			So(errors.Is(errs[0], ErrDuplicateLabel), ShouldBeTrue)
			So(errs[0].Error(), ShouldContainSubstring, "c.yml")
			So(errors.Is(errs[1], ErrBadManifest), ShouldBeTrue)
		})
	})

	Convey("A missing directory is an error", t, func() {
		_, errs := LoadManifests(filepath.Join(t.TempDir(), "nope"))
		So(len(errs), ShouldEqual, 1)
	})

	Convey("Unknown file types are refused by LoadManifest", t, func() {
		fname := writeFile(t, t.TempDir(), "x.toml", "label = 'x'")
		_, e := LoadManifest(fname)
		So(errors.Is(e, ErrBadManifest), ShouldBeTrue)
	})
}
