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
	"context"
	"time"
)

// DefaultPollInterval is how often the poll cycle drains the queues.
const DefaultPollInterval = 200 * time.Millisecond

// Poller is the periodic poll cycle of a presentation layer.  Each cycle
// drains every handle's queue and relays the lines, in order, to its sink.
// A cycle never waits on a child process.
type Poller struct {
	sup      *Supervisor
	sink     Sink
	interval time.Duration
	states   map[string]State
}

func NewPoller(sup *Supervisor, sink Sink, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		sup:      sup,
		sink:     sink,
		interval: interval,
		states:   make(map[string]State),
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// PollOnce runs a single cycle.  It is not safe to call concurrently with
// itself or with Run.
func (p *Poller) PollOnce() {
	ss, _ := p.sink.(StateSink)
	for _, label := range p.sup.Labels() {
		lines, e := p.sup.PollEvents(label)
		if e != nil {
			continue
		}
		if len(lines) != 0 {
			p.sink.Relay(label, lines)
		}
		h := p.sup.handles[label]
		st := h.State()
		if old, ok := p.states[label]; !ok || old != st {
			p.states[label] = st
			if ss != nil {
				ss.StateChanged(h.Info())
			}
		}
	}
}

// Run polls every interval until ctx is done, then runs one last cycle so
// that lines already captured are not left behind.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.PollOnce()
			return
		case <-ticker.C:
			p.PollOnce()
		}
	}
}
