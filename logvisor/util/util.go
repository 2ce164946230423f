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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/nutrilab/logvisor/rest"
)

// Failed reports whether the last run ended badly and nothing has been
// started since.
func Failed(p *rest.ProcessInfo) bool {
	return !p.Running && p.ExitReason != "" && p.ExitCode != 0
}

func Status(p *rest.ProcessInfo) string {
	switch {
	case p.Running:
		return "running"
	case p.State == "terminating":
		return "stopping"
	case Failed(p):
		return "failed"
	case p.State == "exited":
		return "exited"
	}
	return "stopped"
}

// Detail is a short description of the last thing that happened.
func Detail(p *rest.ProcessInfo) string {
	switch {
	case p.Running:
		return fmt.Sprintf("pid %d", p.PID)
	case p.ExitReason != "":
		return p.ExitReason
	}
	return ""
}

// Since returns how long the process has been in its current state, or
// zero if it has never run.
func Since(p *rest.ProcessInfo, now time.Time) time.Duration {
	var t time.Time
	if p.Running {
		t = p.Started
	} else {
		t = p.Exited
	}
	if t.IsZero() {
		return 0
	}
	return now.Sub(t)
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

type sorted []*rest.ProcessInfo

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	if fa, fb := Failed(a), Failed(b); fa != fb {
		// put failed items at front
		return fa
	}
	if a.Running != b.Running {
		return a.Running
	}
	return a.Label < b.Label
}

func SortProcesses(items []*rest.ProcessInfo) {
	sort.Stable(sorted(items))
}
