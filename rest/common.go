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

package rest

import (
	"time"

	"github.com/nutrilab/logvisor"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// PollTimeHeader asks the server to hold a request carrying
	// If-None-Match for up to this many seconds, waiting for a change.
	PollTimeHeader = "X-Logvisor-Poll-Time"

	// MaxPollTime caps the long poll wait the server will honor.
	MaxPollTime = 300
)

var ok struct{}

// LogRecord is a single line of a process log as served over the wire.
type LogRecord = logvisor.LogRecord

// ProcessInfo is the wire form of a process status.
type ProcessInfo struct {
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Command     []string  `json:"command"`
	State       string    `json:"state"`
	Running     bool      `json:"running"`
	PID         int       `json:"pid,omitempty"`
	RunID       string    `json:"runId,omitempty"`
	Started     time.Time `json:"started"`
	Exited      time.Time `json:"exited"`
	ExitCode    int       `json:"exitCode"`
	ExitReason  string    `json:"exitReason,omitempty"`
}

func newProcessInfo(hi logvisor.HandleInfo) *ProcessInfo {
	return &ProcessInfo{
		Label:       hi.Label,
		Description: hi.Description,
		Command:     hi.Command,
		State:       hi.State.String(),
		Running:     hi.State == logvisor.StateRunning,
		PID:         hi.PID,
		RunID:       hi.RunID,
		Started:     hi.Started,
		Exited:      hi.Exited,
		ExitCode:    hi.ExitCode,
		ExitReason:  hi.ExitReason,
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
