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

package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nutrilab/logvisor"
	"github.com/nutrilab/logvisor/rest"
)

type fakeClient struct {
	procs   map[string]*rest.ProcessInfo
	err     error
	toggled chan string
	user    string
	pass    string
}

func (c *fakeClient) Processes() ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	var labels []string
	for l := range c.procs {
		labels = append(labels, l)
	}
	return labels, nil
}

func (c *fakeClient) GetProcess(label string) (*rest.ProcessInfo, error) {
	if p, ok := c.procs[label]; ok {
		return p, nil
	}
	return nil, &rest.Error{Code: 404, Message: "unknown process label"}
}

func (c *fakeClient) ToggleProcess(label string) error {
	c.toggled <- label
	return nil
}

func (c *fakeClient) StopProcess(label string, timeout time.Duration) error {
	c.toggled <- label
	return nil
}

func (c *fakeClient) WatchLog(ctx context.Context, label string, last *rest.LogInfo) (*rest.LogInfo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeClient) SetAuth(user, pass string) {
	c.user = user
	c.pass = pass
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		procs: map[string]*rest.ProcessInfo{
			"web": {Label: "web", State: "running", Running: true, PID: 42},
			"db":  {Label: "db", State: "stopped", ExitCode: 1, ExitReason: "returncode=1"},
			"job": {Label: "job", State: "exited", ExitReason: "returncode=0"},
		},
		toggled: make(chan string, 4),
	}
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestKeyMarkup(t *testing.T) {
	Convey("Bracketed keys get the accent style", t, func() {
		So(keyMarkup([]string{"[Q] Quit", "[H] Help"}), ShouldEqual,
			"[%AQ%N] Quit [%AH%N] Help")
		So(keyMarkup([]string{"plain"}), ShouldEqual, "plain")
		So(keyMarkup([]string{"[%] Pct"}), ShouldEqual, "[%A%%%N] Pct")
		So(keyMarkup(nil), ShouldEqual, "")
	})
}

func TestFieldText(t *testing.T) {
	Convey("Prompt fields are padded and masked", t, func() {
		So(fieldText(nil, false, 0), ShouldEqual, "                ")
		So(fieldText([]rune("bob"), true, 0), ShouldEqual, "bob_            ")
		So(fieldText([]rune("pw"), false, '*'), ShouldEqual, "**              ")
		long := fieldText([]rune("abcdefghijklmnopqrstuvwxyz"), true, 0)
		So(len(long), ShouldEqual, fieldWidth)
		So(long[0], ShouldEqual, byte('<'))
		So(long[fieldWidth-1], ShouldEqual, byte('_'))
	})
}

func TestStyles(t *testing.T) {
	Convey("Process rows are green only while running", t, func() {
		So(processStyle(&rest.ProcessInfo{Running: true}), ShouldResemble, StyleGood)
		So(processStyle(&rest.ProcessInfo{State: "terminating", Running: false}), ShouldResemble, StyleWarn)
		So(processStyle(&rest.ProcessInfo{ExitCode: 2, ExitReason: "returncode=2"}), ShouldResemble, StyleError)
		So(processStyle(&rest.ProcessInfo{State: "stopped"}), ShouldResemble, StyleError)
	})

	Convey("Health follows the process state", t, func() {
		So(processHealth(&rest.ProcessInfo{Running: true}), ShouldEqual, HealthGood)
		So(processHealth(&rest.ProcessInfo{State: "terminating"}), ShouldEqual, HealthWarn)
		So(processHealth(&rest.ProcessInfo{ExitCode: 2, ExitReason: "returncode=2"}), ShouldEqual, HealthError)
		So(processHealth(&rest.ProcessInfo{State: "exited", ExitReason: "returncode=0"}), ShouldEqual, HealthNormal)
	})

	Convey("The status bar ignores unknown health", t, func() {
		sb := NewStatusBar()
		So(sb.Health(), ShouldEqual, HealthNormal)
		sb.Set(HealthWarn, "50% done")
		So(sb.Health(), ShouldEqual, HealthWarn)
		sb.Set(Health(9), "x")
		So(sb.Health(), ShouldEqual, HealthNormal)
	})

	Convey("Log lines are colored by severity", t, func() {
		So(severityStyle(logvisor.SeverityOK), ShouldResemble, StyleGood)
		So(severityStyle(logvisor.SeverityWarning), ShouldResemble, StyleWarn)
		So(severityStyle(logvisor.SeverityError), ShouldResemble, StyleError)
		So(severityStyle(logvisor.SeverityDefault), ShouldResemble, StyleNormal)
	})
}

func TestLines(t *testing.T) {
	now := time.Now()
	Convey("A process row has label, status and detail", t, func() {
		p := &rest.ProcessInfo{Label: "web", Running: true, PID: 7,
			Started: now.Add(-90 * time.Second)}
		line := processLine(p, now)
		So(line, ShouldStartWith, "web ")
		So(line, ShouldContainSubstring, "running")
		So(line, ShouldContainSubstring, "0:01:30")
		So(line, ShouldEndWith, "pid 7")
	})

	Convey("A log line is a timestamp and the raw text", t, func() {
		r := rest.LogRecord{Time: now, Raw: "[ERROR] boom"}
		So(logLine(r), ShouldEqual, now.Format(time.StampMilli)+" [ERROR] boom")
	})

	Convey("Details include the exit reason once stopped", t, func() {
		p := &rest.ProcessInfo{Label: "db", Command: []string{"db", "-x"},
			ExitCode: 1, ExitReason: "returncode=1", Exited: now}
		lines := infoLines(p, now)
		So(lines, ShouldContain, "       Label: db")
		So(lines, ShouldContain, "     Command: db -x")
		So(lines, ShouldContain, "      Status: failed")
		So(lines, ShouldContain, "      Detail: returncode=1")
		So(lines, ShouldContain, "     Started: -")
	})
}

func TestApp(t *testing.T) {
	Convey("Given an app over a fake client", t, func() {
		c := newFakeClient()
		a := NewApp(c, "http://example:8321")
		So(a.Server(), ShouldEqual, "http://example:8321")

		Convey("Items are loaded sorted", func() {
			items, e := a.getItems()
			So(e, ShouldBeNil)
			So(len(items), ShouldEqual, 3)
			So(items[0].Label, ShouldEqual, "db")
			So(items[1].Label, ShouldEqual, "web")
			So(items[2].Label, ShouldEqual, "job")
		})

		Convey("Load errors are reported", func() {
			c.err = errors.New("connection refused")
			_, e := a.getItems()
			So(e, ShouldEqual, c.err)
		})

		Convey("The main panel counts and selects processes", func() {
			a.items, a.err = a.getItems()
			m := a.main
			m.update()
			So(m.nrunning, ShouldEqual, 1)
			So(m.nfailed, ShouldEqual, 1)
			So(m.nstopped, ShouldEqual, 1)
			So(len(m.lines), ShouldEqual, 3)
			So(m.styles[0], ShouldResemble, StyleError)
			So(m.styles[1], ShouldResemble, StyleGood)
			So(m.status.Health(), ShouldEqual, HealthError)

			model := &mainModel{m}
			model.SetCursor(0, 1)
			So(m.selected, ShouldNotBeNil)
			So(m.selected.Label, ShouldEqual, "db")
			model.MoveCursor(0, 1)
			So(m.selected.Label, ShouldEqual, "web")

			_, style, _, _ := model.GetCell(0, 1)
			So(style, ShouldResemble, StyleGood.Reverse(true))

			So(m.HandleEvent(key('s')), ShouldBeTrue)
			So(<-c.toggled, ShouldEqual, "web")

			model.MoveCursor(0, 10)
			So(m.selected.Label, ShouldEqual, "job")

			m.unselect()
			So(m.selected, ShouldBeNil)
		})

		Convey("Main panel errors clear the table", func() {
			a.items, a.err = a.getItems()
			a.main.update()
			a.err = errors.New("connection refused")
			a.items = nil
			a.main.update()
			So(a.main.lines, ShouldBeEmpty)
			So(a.main.height, ShouldEqual, 0)
			So(a.main.status.Health(), ShouldEqual, HealthError)
		})

		Convey("GetItem finds by label", func() {
			a.items, a.err = a.getItems()
			p, e := a.GetItem("web")
			So(e, ShouldBeNil)
			So(p.PID, ShouldEqual, 42)
			_, e = a.GetItem("nope")
			So(e, ShouldEqual, errNotFound)
		})

		Convey("The log panel follows the tail", func() {
			a.logName = "web"
			a.logRecs = []rest.LogRecord{
				{Id: 1, Raw: "[OK] up", Severity: logvisor.SeverityOK},
				{Id: 2, Raw: "plain"},
			}
			p := a.log
			p.SetName("web")
			p.update()
			So(len(p.lines), ShouldEqual, 2)
			So(p.styles[0], ShouldResemble, StyleGood)
			So(p.styles[1], ShouldResemble, StyleNormal)
			So(p.follow, ShouldBeTrue)

			(&logModel{p}).MoveCursor(0, -1)
			So(p.follow, ShouldBeFalse)
		})

		Convey("Logs for other processes are not shown", func() {
			a.logName = "web"
			a.logRecs = []rest.LogRecord{{Id: 1}}
			recs, e := a.GetLog("db")
			So(recs, ShouldBeNil)
			So(e, ShouldBeNil)
		})
	})
}
