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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a ProcessHandle.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateTerminating
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	// DefaultStopTime is how long Terminate waits for a graceful exit
	// when the caller does not supply a timeout.
	DefaultStopTime = 2 * time.Second

	// exitWait is how long the capture goroutine waits for the exit
	// status once the output stream has closed, before reporting that
	// the process closed its output early.
	exitWait = 250 * time.Millisecond

	// drainWait bounds how long Terminate waits for the capture goroutine
	// to finish after the process is gone.
	drainWait = 500 * time.Millisecond
)

// Command describes the program a ProcessHandle runs.  Args does not
// include the program itself.
type Command struct {
	Path        string
	Args        []string
	Env         []string      // extra KEY=value pairs, applied over our environment
	Dir         string        // working directory, empty for ours
	StopTime    time.Duration // graceful wait used when Terminate gets no timeout
	Description string
}

// exitStatus is what the reaper learned from Wait.
type exitStatus struct {
	code   int    // -1 if killed by a signal
	signal string // non-empty if killed by a signal
	err    error  // a Wait failure that was not an exit status
	when   time.Time
}

// run is one incarnation of the OS process behind a handle.
type run struct {
	id       string
	cmd      *exec.Cmd
	pid      int
	started  time.Time
	status   exitStatus    // written by the reaper before exited is closed
	exited   chan struct{} // closed by the reaper
	captured chan struct{} // closed by the capture goroutine
}

// ProcessHandle owns the lifecycle of one managed process.  The handle
// lives as long as its Supervisor; the OS process behind it comes and goes
// with Start and Terminate.
type ProcessHandle struct {
	label  string
	cmd    Command
	logger *slog.Logger
	queue  *Queue
	state  atomic.Int32

	lock   sync.Mutex // serializes Start and Terminate
	closed bool       // set by shutdown under lock; Start refuses after

	mx   sync.Mutex // protects cur and last
	cur  *run
	last *run
}

// HandleInfo is a point in time snapshot of a handle.
type HandleInfo struct {
	Label       string
	Description string
	Command     []string
	State       State
	PID         int
	RunID       string
	Started     time.Time
	Exited      time.Time
	ExitCode    int    // -1 if unknown or killed by a signal
	ExitReason  string // empty until the first run has exited
}

// NewProcessHandle returns a Stopped handle for the command.
func NewProcessHandle(label string, cmd Command) *ProcessHandle {
	if cmd.StopTime <= 0 {
		cmd.StopTime = DefaultStopTime
	}
	cmd.Args = append([]string(nil), cmd.Args...)
	cmd.Env = append([]string(nil), cmd.Env...)
	if cmd.Description == "" {
		cmd.Description = label + " process: " + cmd.Path
	}
	h := &ProcessHandle{
		label:  label,
		cmd:    cmd,
		logger: discardLogger,
		queue:  NewQueue(),
	}
	h.state.Store(int32(StateStopped))
	return h
}

func (h *ProcessHandle) Label() string {
	return h.label
}

func (h *ProcessHandle) Description() string {
	return h.cmd.Description
}

// StopTime is the graceful wait used when Terminate is given no timeout.
func (h *ProcessHandle) StopTime() time.Duration {
	return h.cmd.StopTime
}

// Command returns the program path followed by its arguments.
func (h *ProcessHandle) Command() []string {
	return append([]string{h.cmd.Path}, h.cmd.Args...)
}

func (h *ProcessHandle) setLogger(l *slog.Logger) {
	h.logger = l.With("label", h.label)
}

// State never blocks, even while a Terminate is in progress.
func (h *ProcessHandle) State() State {
	return State(h.state.Load())
}

// IsRunning reports whether the OS process is alive.  It never blocks.
func (h *ProcessHandle) IsRunning() bool {
	return h.State() == StateRunning
}

// Poll drains the lines captured since the previous Poll.
func (h *ProcessHandle) Poll() []LogLine {
	return h.queue.Drain()
}

// push adds a synthetic line, as if the process had printed it.
func (h *ProcessHandle) push(raw string) {
	h.queue.Push(NewLogLine(time.Now(), raw))
}

func (h *ProcessHandle) lookPath() (string, error) {
	p := h.cmd.Path
	if p == "" {
		return "", fmt.Errorf("%w: %s: empty command", ErrNotFound, h.label)
	}
	if strings.ContainsRune(p, filepath.Separator) {
		fp := p
		if h.cmd.Dir != "" && !filepath.IsAbs(p) {
			fp = filepath.Join(h.cmd.Dir, p)
		}
		if fi, e := os.Stat(fp); e != nil || fi.IsDir() {
			return "", fmt.Errorf("%w: %s: %s", ErrNotFound, h.label, p)
		}
		return p, nil
	}
	if _, e := exec.LookPath(p); e != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrNotFound, h.label, p)
	}
	return p, nil
}

// environ is our environment with the manifest additions and UTF-8 output
// forced.  exec keeps the last value for duplicate keys.
func (h *ProcessHandle) environ() []string {
	env := os.Environ()
	env = append(env, h.cmd.Env...)
	env = append(env, "PYTHONIOENCODING=utf-8")
	if os.Getenv("PYTHONUNBUFFERED") == "" {
		env = append(env, "PYTHONUNBUFFERED=1")
	}
	if os.Getenv("LC_ALL") == "" && os.Getenv("LANG") == "" {
		env = append(env, "LANG=C.UTF-8")
	}
	return env
}

// Start launches the process if it is not already running.  Calling Start
// on a running handle does nothing and returns nil.
func (h *ProcessHandle) Start() error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return fmt.Errorf("%w: %s", ErrShutdown, h.label)
	}
	switch h.State() {
	case StateRunning:
		return nil
	case StateExited:
		// The previous run ended on its own.  Whatever it left behind
		// in its group goes, and its last lines are flushed, before the
		// next run can queue anything.
		h.mx.Lock()
		r := h.cur
		h.mx.Unlock()
		h.finish(r)
	}
	path, e := h.lookPath()
	if e != nil {
		return e
	}

	// Both stdout and stderr go to the one pipe, so lines stay in the
	// order the process wrote them.
	pr, pw, e := os.Pipe()
	if e != nil {
		return fmt.Errorf("%w: %s: %v", ErrSpawnFailure, h.label, e)
	}
	cmd := exec.Command(path, h.cmd.Args...)
	cmd.Dir = h.cmd.Dir
	cmd.Env = h.environ()
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if e := cmd.Start(); e != nil {
		pr.Close()
		pw.Close()
		h.state.Store(int32(StateStopped))
		h.logger.Warn("spawn failed", "path", path, "error", e)
		return fmt.Errorf("%w: %s: %v", ErrSpawnFailure, h.label, e)
	}
	// The child has its own copy now; EOF on pr means it (and anything it
	// handed the descriptor to) has closed its output.
	pw.Close()

	r := &run{
		id:       uuid.NewString(),
		cmd:      cmd,
		pid:      cmd.Process.Pid,
		started:  time.Now(),
		exited:   make(chan struct{}),
		captured: make(chan struct{}),
	}
	h.mx.Lock()
	h.cur = r
	h.mx.Unlock()

	h.state.Store(int32(StateRunning))
	h.push(fmt.Sprintf("[Started] pid=%d", r.pid))
	h.logger.Info("process started", "pid", r.pid, "run", r.id)

	go h.reap(r)
	go h.capture(r, pr)
	return nil
}

// reap waits for the process and publishes its exit status.
func (h *ProcessHandle) reap(r *run) {
	e := r.cmd.Wait()
	st := exitStatus{code: 0, when: time.Now()}
	if e != nil {
		var ee *exec.ExitError
		if errors.As(e, &ee) {
			st.code = ee.ExitCode()
			if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				st.signal = ws.Signal().String()
			}
		} else {
			st.code = -1
			st.err = e
		}
	}
	r.status = st

	h.mx.Lock()
	h.last = r
	h.mx.Unlock()

	if !h.state.CompareAndSwap(int32(StateRunning), int32(StateExited)) {
		h.state.CompareAndSwap(int32(StateTerminating), int32(StateExited))
	}
	h.logger.Info("process exited", "pid", r.pid, "code", st.code, "signal", st.signal)
	close(r.exited)
}

// Terminate stops the process: SIGTERM to its process group, then SIGKILL
// if it is still around after timeout.  A zero timeout means the command's
// StopTime.  On return the process is gone and the handle is Stopped.
func (h *ProcessHandle) Terminate(timeout time.Duration) {
	h.terminate(timeout, "")
}

// shutdown terminates the process, if any, and refuses later Starts.
// Taking the lock orders it after a Start already in progress.
func (h *ProcessHandle) shutdown(timeout time.Duration) {
	h.lock.Lock()
	h.closed = true
	h.lock.Unlock()
	h.terminate(timeout, "")
}

// terminate reports whether there was a live process to stop.  If so, and
// trailer is not empty, it is queued after the final lines of the run,
// before any later Start can queue its own.
func (h *ProcessHandle) terminate(timeout time.Duration, trailer string) bool {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.mx.Lock()
	r := h.cur
	h.mx.Unlock()

	switch h.State() {
	case StateStopped:
		return false
	case StateExited:
		// It went away on its own; just acknowledge it.
		h.finish(r)
		return false
	}
	if timeout <= 0 {
		timeout = h.cmd.StopTime
	}

	h.state.CompareAndSwap(int32(StateRunning), int32(StateTerminating))
	if e := terminateGroup(r.pid); e != nil {
		h.logger.Warn("failed sending SIGTERM", "pid", r.pid, "error", e)
	}

	timer := time.NewTimer(timeout)
	select {
	case <-r.exited:
		timer.Stop()
	case <-timer.C:
		h.logger.Warn("graceful shutdown timed out", "pid", r.pid, "timeout", timeout)
		if e := killGroup(r.pid); e != nil {
			h.logger.Warn("failed killing", "pid", r.pid, "error", e)
		}
		<-r.exited
	}
	h.finish(r)
	if trailer != "" {
		h.push(trailer)
	}
	return true
}

// finish clears up after a run whose process has been reaped.  Leftover
// members of its process group are killed; the capture goroutine is
// given a moment to flush the final lines.
func (h *ProcessHandle) finish(r *run) {
	if r != nil {
		killStragglers(r.pid)
		select {
		case <-r.captured:
		case <-time.After(drainWait):
			h.logger.Warn("output still open after exit", "pid", r.pid)
		}
	}
	h.mx.Lock()
	h.cur = nil
	h.mx.Unlock()
	h.state.Store(int32(StateStopped))
}

// Info returns a snapshot of the handle.
func (h *ProcessHandle) Info() HandleInfo {
	info := HandleInfo{
		Label:       h.label,
		Description: h.cmd.Description,
		Command:     h.Command(),
		State:       h.State(),
		ExitCode:    -1,
	}
	h.mx.Lock()
	defer h.mx.Unlock()

	if r := h.cur; r != nil {
		info.PID = r.pid
		info.RunID = r.id
		info.Started = r.started
	}
	if r := h.last; r != nil {
		if info.RunID == "" {
			info.RunID = r.id
			info.Started = r.started
		}
		info.Exited = r.status.when
		info.ExitCode = r.status.code
		info.ExitReason = r.status.reason()
	}
	return info
}

func (st *exitStatus) reason() string {
	switch {
	case st.signal != "":
		return "killed by signal: " + st.signal
	case st.err != nil:
		return st.err.Error()
	}
	return fmt.Sprintf("returncode=%d", st.code)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
