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
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func testLines(n int, prefix string) []LogLine {
	lines := make([]LogLine, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, NewLogLine(time.Now(), fmt.Sprintf("%s %d", prefix, i)))
	}
	return lines
}

func TestHistory(t *testing.T) {
	Convey("Given an empty history", t, func() {
		h := NewHistory(10)
		start := h.LastID("a")
		So(start, ShouldBeGreaterThan, 0)

		recs, id := h.GetRecords("a", 0)
		So(recs, ShouldBeEmpty)
		So(id, ShouldEqual, start)

		Convey("Relayed lines become records", func() {
			h.Relay("a", []LogLine{NewLogLine(time.Now(), "[OK] hello")})
			recs, id := h.GetRecords("a", 0)
			So(len(recs), ShouldEqual, 1)
			So(recs[0].Id, ShouldEqual, start+1)
			So(recs[0].Label, ShouldEqual, "a")
			So(recs[0].Text, ShouldEqual, "hello")
			So(recs[0].Severity, ShouldEqual, SeverityOK)
			So(id, ShouldEqual, start+1)

			Convey("and asking again with the returned id gets nothing", func() {
				recs, id2 := h.GetRecords("a", id)
				So(recs, ShouldBeNil)
				So(id2, ShouldEqual, id)
			})

			Convey("and only newer records come back", func() {
				h.Relay("a", testLines(3, "more"))
				recs, id2 := h.GetRecords("a", id)
				So(len(recs), ShouldEqual, 3)
				So(recs[0].Raw, ShouldEqual, "more 0")
				So(id2, ShouldEqual, id+3)
			})
		})

		Convey("Labels are kept apart", func() {
			h.Relay("a", testLines(2, "a"))
			h.Relay("b", testLines(5, "b"))
			ra, _ := h.GetRecords("a", 0)
			rb, _ := h.GetRecords("b", 0)
			So(len(ra), ShouldEqual, 2)
			So(len(rb), ShouldEqual, 5)
		})

		Convey("The ring keeps only the newest records", func() {
			h.Relay("a", testLines(25, "x"))
			recs, _ := h.GetRecords("a", 0)
			So(len(recs), ShouldEqual, 10)
			So(recs[0].Raw, ShouldEqual, "x 15")
			So(recs[9].Raw, ShouldEqual, "x 24")
			for i := 1; i < len(recs); i++ {
				So(recs[i].Id, ShouldEqual, recs[i-1].Id+1)
			}
		})

		Convey("Clear drops everything", func() {
			h.Relay("a", testLines(3, "x"))
			h.Clear("a")
			recs, _ := h.GetRecords("a", 0)
			So(recs, ShouldBeEmpty)
		})
	})
}

func TestHistoryWatch(t *testing.T) {
	Convey("Watch returns at once when there is something new", t, func() {
		h := NewHistory(0)
		last := h.LastID("a")
		h.Relay("a", testLines(1, "x"))
		So(h.Watch(context.Background(), "a", last, time.Second), ShouldEqual, last+1)
	})

	Convey("Watch wakes up for new records", t, func() {
		h := NewHistory(0)
		last := h.LastID("a")
		go func() {
			time.Sleep(50 * time.Millisecond)
			h.Relay("a", testLines(2, "x"))
		}()
		t0 := time.Now()
		So(h.Watch(context.Background(), "a", last, 5*time.Second), ShouldEqual, last+2)
		So(time.Since(t0), ShouldBeLessThan, 2*time.Second)
	})

	Convey("Watch gives up after the expiry", t, func() {
		h := NewHistory(0)
		last := h.LastID("a")
		t0 := time.Now()
		So(h.Watch(context.Background(), "a", last, 100*time.Millisecond), ShouldEqual, last)
		So(time.Since(t0), ShouldBeGreaterThanOrEqualTo, 100*time.Millisecond)
	})

	Convey("Watch ends when its context does", t, func() {
		h := NewHistory(0)
		last := h.LastID("a")
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)
		t0 := time.Now()
		So(h.Watch(ctx, "a", last, time.Minute), ShouldEqual, last)
		So(time.Since(t0), ShouldBeLessThan, 5*time.Second)
	})

	Convey("Records for other labels do not end the wait", t, func() {
		h := NewHistory(0)
		last := h.LastID("a")
		h.Relay("b", testLines(1, "x"))
		So(h.Watch(context.Background(), "a", last, 50*time.Millisecond), ShouldEqual, last)
	})
}
