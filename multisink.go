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
	"sync"
)

// Sink receives the lines the poll cycle relays for a label.  Relay is
// called from the poll goroutine, one label at a time, so it should not
// block for long.
type Sink interface {
	Relay(label string, lines []LogLine)
}

// StateSink is implemented by sinks that also want to hear when the poll
// cycle sees a handle change state.
type StateSink interface {
	StateChanged(info HandleInfo)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(label string, lines []LogLine)

func (f SinkFunc) Relay(label string, lines []LogLine) {
	f(label, lines)
}

// MultiSink fans relayed lines out to any number of sinks.  Sinks can come
// and go while the poll cycle runs, which is how live followers attach.
type MultiSink struct {
	sinks map[*sinkEntry]bool
	order []*sinkEntry
	lock  sync.Mutex
}

type sinkEntry struct {
	sink Sink
}

// AddSink registers a sink; the returned function removes it again.
// All new lines will be fanned out to this sink, as well as any others
// that may have been registered earlier.
func (m *MultiSink) AddSink(s Sink) func() {
	e := &sinkEntry{sink: s}
	m.lock.Lock()
	if m.sinks == nil {
		m.sinks = make(map[*sinkEntry]bool)
	}
	m.sinks[e] = true
	m.order = append(m.order, e)
	m.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.delSink(e) })
	}
}

func (m *MultiSink) delSink(e *sinkEntry) {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.sinks, e)
	for i, x := range m.order {
		if x == e {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *MultiSink) snapshot() []*sinkEntry {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]*sinkEntry(nil), m.order...)
}

// Relay implements Sink.  Sinks are called in registration order, without
// the lock held, so a sink may remove itself.
func (m *MultiSink) Relay(label string, lines []LogLine) {
	for _, e := range m.snapshot() {
		e.sink.Relay(label, lines)
	}
}

// StateChanged implements StateSink, forwarding to the sinks that want it.
func (m *MultiSink) StateChanged(info HandleInfo) {
	for _, e := range m.snapshot() {
		if ss, ok := e.sink.(StateSink); ok {
			ss.StateChanged(info)
		}
	}
}

// Len returns the number of registered sinks.
func (m *MultiSink) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.order)
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		m.AddSink(s)
	}
	return m
}
