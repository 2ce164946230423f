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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type recordingSink struct {
	labels []string
	lines  int
	infos  []HandleInfo
}

func (r *recordingSink) Relay(label string, lines []LogLine) {
	r.labels = append(r.labels, label)
	r.lines += len(lines)
}

func (r *recordingSink) StateChanged(info HandleInfo) {
	r.infos = append(r.infos, info)
}

func TestMultiSink(t *testing.T) {
	Convey("A MultiSink fans out to every sink", t, func() {
		a := &recordingSink{}
		count := 0
		m := NewMultiSink(a, SinkFunc(func(label string, lines []LogLine) {
			count += len(lines)
		}))
		So(m.Len(), ShouldEqual, 2)

		m.Relay("x", testLines(3, "l"))
		So(a.lines, ShouldEqual, 3)
		So(a.labels, ShouldResemble, []string{"x"})
		So(count, ShouldEqual, 3)

		Convey("State changes go only to state sinks", func() {
			m.StateChanged(HandleInfo{Label: "x", State: StateRunning})
			So(len(a.infos), ShouldEqual, 1)
			So(a.infos[0].State, ShouldEqual, StateRunning)
		})

		Convey("Removed sinks see nothing more", func() {
			b := &recordingSink{}
			remove := m.AddSink(b)
			So(m.Len(), ShouldEqual, 3)
			m.Relay("y", testLines(1, "l"))
			So(b.lines, ShouldEqual, 1)

			remove()
			remove()
			So(m.Len(), ShouldEqual, 2)
			m.Relay("y", testLines(1, "l"))
			So(b.lines, ShouldEqual, 1)
			So(a.lines, ShouldEqual, 5)
		})

		Convey("A sink may remove itself while relaying", func() {
			var remove func()
			calls := 0
			remove = m.AddSink(SinkFunc(func(string, []LogLine) {
				calls++
				remove()
			}))
			m.Relay("z", testLines(1, "l"))
			m.Relay("z", testLines(1, "l"))
			So(calls, ShouldEqual, 1)
		})
	})

	Convey("A zero MultiSink is usable", t, func() {
		var m MultiSink
		m.Relay("x", testLines(1, "l"))
		remove := m.AddSink(SinkFunc(func(string, []LogLine) {}))
		So(m.Len(), ShouldEqual, 1)
		remove()
		So(m.Len(), ShouldEqual, 0)
	})

	Convey("History is a sink", t, func() {
		h := NewHistory(0)
		m := NewMultiSink(h)
		m.Relay("x", []LogLine{NewLogLine(time.Now(), "[Error] bad")})
		recs, _ := h.GetRecords("x", 0)
		So(len(recs), ShouldEqual, 1)
		So(recs[0].Severity, ShouldEqual, SeverityError)
	})
}
