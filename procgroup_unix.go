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

//go:build unix

package logvisor

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in a process group of its own, so that
// signals for it (and its children) never reach us.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	// A negative pid addresses the whole group.
	e := syscall.Kill(-pid, sig)
	if errors.Is(e, syscall.ESRCH) {
		return nil
	}
	return e
}

func terminateGroup(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

func killGroup(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

// killStragglers kills whatever is left of the group once its leader has
// been reaped.
func killStragglers(pid int) {
	killGroup(pid)
}
