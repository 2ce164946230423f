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

//go:build !unix

package logvisor

import (
	"os"
	"os/exec"
)

// Without process groups the best we can do is the process itself, and
// there is no graceful request, so both paths kill.

func setProcessGroup(cmd *exec.Cmd) {}

func killPid(pid int) error {
	if pid <= 0 {
		return nil
	}
	p, e := os.FindProcess(pid)
	if e != nil {
		return nil
	}
	if e = p.Kill(); e == os.ErrProcessDone {
		return nil
	}
	return e
}

func terminateGroup(pid int) error {
	return killPid(pid)
}

func killGroup(pid int) error {
	return killPid(pid)
}

// There is no group to clean up after, and the pid may already belong to
// someone else.
func killStragglers(pid int) {}
