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
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns a fixed set of ProcessHandles, indexed by label.  The
// handles are independent of each other; there is no lock across them.
type Supervisor struct {
	name       string
	labels     []string
	handles    map[string]*ProcessHandle
	logger     *slog.Logger
	closed     atomic.Bool
	createTime time.Time
}

// NewSupervisor builds a Supervisor over the handles.  Labels must be unique.
func NewSupervisor(name string, handles ...*ProcessHandle) (*Supervisor, error) {
	if name == "" {
		name = "logvisor"
	}
	s := &Supervisor{
		name:       name,
		handles:    make(map[string]*ProcessHandle, len(handles)),
		logger:     discardLogger,
		createTime: time.Now(),
	}
	for _, h := range handles {
		if _, ok := s.handles[h.Label()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, h.Label())
		}
		s.handles[h.Label()] = h
		s.labels = append(s.labels, h.Label())
	}
	return s, nil
}

// Name returns the name the supervisor was created with.
func (s *Supervisor) Name() string {
	return s.name
}

func (s *Supervisor) CreateTime() time.Time {
	return s.createTime
}

// SetLogger establishes the logger for the supervisor and its handles.
// It must be called before any process is started.
func (s *Supervisor) SetLogger(l *slog.Logger) {
	if l == nil {
		l = discardLogger
	}
	s.logger = l.With("supervisor", s.name)
	for _, h := range s.handles {
		h.setLogger(s.logger)
	}
}

// Labels returns the labels in the order the handles were supplied.
func (s *Supervisor) Labels() []string {
	return append([]string(nil), s.labels...)
}

func (s *Supervisor) Handle(label string) (*ProcessHandle, error) {
	if h, ok := s.handles[label]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
}

// Start starts the labeled process, unless it is already running.
func (s *Supervisor) Start(label string) error {
	h, e := s.Handle(label)
	if e != nil {
		return e
	}
	if s.closed.Load() {
		return ErrShutdown
	}
	return h.Start()
}

// StartAll starts every process that is not running.  All are attempted;
// the failures are joined.
func (s *Supervisor) StartAll() error {
	var errs []error
	for _, l := range s.labels {
		if e := s.Start(l); e != nil {
			s.logger.Warn("start failed", "label", l, "error", e)
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// Stop terminates the labeled process, waiting up to timeout for it to go
// gracefully.  Stopping a process that is not running is not an error.
func (s *Supervisor) Stop(label string, timeout time.Duration) error {
	h, e := s.Handle(label)
	if e != nil {
		return e
	}
	h.terminate(timeout, "[Terminated_by_user] stopped by request")
	return nil
}

// Toggle starts the process if it is not running and stops it otherwise,
// using the handle's own stop time.
func (s *Supervisor) Toggle(label string) error {
	h, e := s.Handle(label)
	if e != nil {
		return e
	}
	if h.IsRunning() {
		return s.Stop(label, 0)
	}
	return s.Start(label)
}

// IsRunning is false for labels we do not know.
func (s *Supervisor) IsRunning(label string) bool {
	if h, ok := s.handles[label]; ok {
		return h.IsRunning()
	}
	return false
}

// PollEvents returns the lines captured for the label since the last call,
// oldest first.  It never waits for output.
func (s *Supervisor) PollEvents(label string) ([]LogLine, error) {
	h, e := s.Handle(label)
	if e != nil {
		return nil, e
	}
	return h.Poll(), nil
}

func (s *Supervisor) Info(label string) (HandleInfo, error) {
	h, e := s.Handle(label)
	if e != nil {
		return HandleInfo{}, e
	}
	return h.Info(), nil
}

// Infos returns a snapshot of every handle, in label order.
func (s *Supervisor) Infos() []HandleInfo {
	infos := make([]HandleInfo, 0, len(s.labels))
	for _, l := range s.labels {
		infos = append(infos, s.handles[l].Info())
	}
	return infos
}

// IsShutdown reports whether ShutdownAll has been called.
func (s *Supervisor) IsShutdown() bool {
	return s.closed.Load()
}

// ShutdownAll terminates every live process, all at once, so that it
// takes as long as the slowest one rather than the sum of them.  Once
// called, Start fails with ErrShutdown.  Every handle is visited, so a
// Start racing with the shutdown is either refused or stopped.
func (s *Supervisor) ShutdownAll(timeout time.Duration) {
	s.closed.Store(true)
	s.logger.Info("shutting down", "timeout", timeout)

	var g errgroup.Group
	for _, l := range s.labels {
		h := s.handles[l]
		g.Go(func() error {
			h.shutdown(timeout)
			return nil
		})
	}
	g.Wait()
	s.logger.Info("shut down")
}
