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

// Package logvisor supervises a small, fixed set of worker processes and
// streams their output live.
//
// Each managed process has a ProcessHandle, created once and reused for
// every run of the underlying OS process.  A handle starts its process in
// a process group of its own, reads the merged stdout and stderr on a
// goroutine of its own, and queues every line as a LogLine classified by
// the bracketed tag it starts with ("[OK]", "[Warning]", "[Error]", and
// so on).  Terminate asks the group to exit with SIGTERM and follows up
// with SIGKILL if it has not gone within the timeout.
//
// A Supervisor holds the handles by label.  Presentation layers drive it
// from a periodic poll cycle (see Poller): PollEvents never blocks, and
// lines of a given process always arrive in the order it printed them.
// ShutdownAll stops everything concurrently at teardown.
//
// The logvisord daemon serves a Supervisor over HTTP (see package rest);
// the logvisor command is its client, with a terminal control surface.
package logvisor
