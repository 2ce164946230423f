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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nutrilab/logvisor/rest"
)

func fakeServer(procs map[string]*rest.ProcessInfo) *httptest.Server {
	r := mux.NewRouter()
	r.HandleFunc("/processes", func(w http.ResponseWriter, _ *http.Request) {
		labels := []string{}
		for l := range procs {
			labels = append(labels, l)
		}
		json.NewEncoder(w).Encode(labels)
	})
	r.HandleFunc("/processes/{label}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := procs[mux.Vars(r)["label"]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(&rest.Error{Code: 404, Message: "unknown process label"})
			return
		}
		json.NewEncoder(w).Encode(p)
	})
	return httptest.NewServer(r)
}

func TestParseAuth(t *testing.T) {
	Convey("user:pass pairs are split once", t, func() {
		u, p, e := parseAuth("admin:se:cret")
		So(e, ShouldBeNil)
		So(u, ShouldEqual, "admin")
		So(p, ShouldEqual, "se:cret")

		_, _, e = parseAuth("admin")
		So(e, ShouldNotBeNil)
		_, _, e = parseAuth(":pass")
		So(e, ShouldNotBeNil)
	})
}

func TestPrinters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Status lines show label, state, age and detail", t, func() {
		var b bytes.Buffer
		printStatus(&b, &rest.ProcessInfo{Label: "web", Running: true, PID: 9,
			Started: now.Add(-75 * time.Second)}, now)
		So(b.String(), ShouldStartWith, "web ")
		So(b.String(), ShouldContainSubstring, "running")
		So(b.String(), ShouldContainSubstring, "1m15s")
		So(b.String(), ShouldEndWith, "pid 9\n")
	})

	Convey("Info omits what never happened", t, func() {
		var b bytes.Buffer
		printInfo(&b, &rest.ProcessInfo{Label: "db", Command: []string{"db", "--fast"}})
		So(b.String(), ShouldContainSubstring, "     Command: db --fast\n")
		So(b.String(), ShouldNotContainSubstring, "Started:")
		So(b.String(), ShouldNotContainSubstring, "Exit Code:")
	})

	Convey("Records print with their timestamp", t, func() {
		var b bytes.Buffer
		printRecord(&b, rest.LogRecord{Time: now, Raw: "[WARN] low disk"})
		So(b.String(), ShouldEqual, now.Format(time.StampMilli)+" [WARN] low disk\n")
	})
}

func TestStatusCommand(t *testing.T) {
	Convey("Given a fake daemon", t, func() {
		srv := fakeServer(map[string]*rest.ProcessInfo{
			"web": {Label: "web", State: "running", Running: true, PID: 1},
			"db":  {Label: "db", State: "stopped", ExitCode: 2, ExitReason: "returncode=2"},
		})
		Reset(srv.Close)

		saved := flagAddr
		flagAddr = srv.URL
		Reset(func() { flagAddr = saved })

		var out bytes.Buffer
		statusCmd.SetOut(&out)
		Reset(func() { statusCmd.SetOut(nil) })

		Convey("All processes are listed, failed first", func() {
			So(statusCmd.RunE(statusCmd, nil), ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			So(len(lines), ShouldEqual, 2)
			So(lines[0], ShouldStartWith, "db ")
			So(lines[0], ShouldContainSubstring, "failed")
			So(lines[1], ShouldStartWith, "web ")
		})

		Convey("Unknown labels are reported after the known ones", func() {
			e := statusCmd.RunE(statusCmd, []string{"web", "nope"})
			So(e, ShouldNotBeNil)
			So(e.Error(), ShouldContainSubstring, "nope")
			So(out.String(), ShouldStartWith, "web ")
		})
	})
}

func TestUILogger(t *testing.T) {
	Convey("Without a file the ui logger discards", t, func() {
		l, c, e := uiLogger("")
		So(e, ShouldBeNil)
		So(l, ShouldNotBeNil)
		So(c.Close(), ShouldBeNil)
	})

	Convey("With a file diagnostics are appended", t, func() {
		path := filepath.Join(t.TempDir(), "ui.log")
		l, c, e := uiLogger(path)
		So(e, ShouldBeNil)
		l.Info("hello")
		So(c.Close(), ShouldBeNil)
		b, e := os.ReadFile(path)
		So(e, ShouldBeNil)
		So(string(b), ShouldContainSubstring, "msg=hello")
		So(string(b), ShouldContainSubstring, "service=logvisor")
	})
}
