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
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

// LogRecord is a relayed LogLine as kept by History.  IDs increase by one
// for each record of a label.
type LogRecord struct {
	Id       int64     `json:"id,string"`
	Label    string    `json:"label"`
	Time     time.Time `json:"time"`
	Raw      string    `json:"raw"`
	Text     string    `json:"text"`
	Severity Severity  `json:"severity"`
}

type ring struct {
	records    []LogRecord
	numRecords int
	id         int64
}

// History keeps the most recent records relayed for each label, and lets
// readers wait for new ones.  It implements Sink.
type History struct {
	rings      map[string]*ring
	maxRecords int
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

func (h *History) lock() {
	h.mx.Lock()
}

func (h *History) unlock() {
	h.mx.Unlock()
}

// getRing must be called with the lock held.
func (h *History) getRing(label string) *ring {
	r, ok := h.rings[label]
	if !ok {
		// We presume that we cannot add new records more quickly than
		// once every nanosecond, so IDs from a restarted daemon are
		// always newer than the ones a client saw before.
		r = &ring{
			records: make([]LogRecord, h.maxRecords),
			id:      time.Now().UnixNano(),
		}
		h.rings[label] = r
	}
	return r
}

// Relay appends the lines to the label's history.
func (h *History) Relay(label string, lines []LogLine) {
	if len(lines) == 0 {
		return
	}
	h.lock()
	r := h.getRing(label)
	for _, l := range lines {
		idx := r.numRecords % h.maxRecords
		r.id++
		r.records[idx] = LogRecord{
			Id:       r.id,
			Label:    label,
			Time:     l.Time,
			Raw:      l.Raw,
			Text:     l.Text,
			Severity: l.Severity,
		}
		// NB: numRecords may actually be more than maxRecords.
		// In that case, we've looped, but we use this really to
		// track the next index.
		r.numRecords++
	}
	for cv := range h.cvs {
		cv.Broadcast()
	}
	h.unlock()
}

// Clear forgets the records of a label.
func (h *History) Clear(label string) {
	h.lock()
	r := h.getRing(label)
	r.numRecords = 0
	r.id = time.Now().UnixNano()
	for cv := range h.cvs {
		cv.Broadcast()
	}
	h.unlock()
}

// LastID returns the ID of the newest record for the label.  It is
// suitable for use as an Etag.
func (h *History) LastID(label string) int64 {
	h.lock()
	defer h.unlock()
	return h.getRing(label).id
}

// GetRecords returns the stored records newer than last, along with the
// ID of the newest record.  If nothing has been added since last, it
// returns nil immediately.  If last is older than anything still stored
// (or 0), every stored record is returned.
func (h *History) GetRecords(label string, last int64) ([]LogRecord, int64) {
	h.lock()
	defer h.unlock()

	r := h.getRing(label)
	if r.id == last {
		return nil, last
	}
	cnt := r.numRecords
	if cnt > h.maxRecords {
		cnt = h.maxRecords
	}
	if n := r.id - last; last != 0 && n > 0 && n < int64(cnt) {
		cnt = int(n)
	}
	recs := make([]LogRecord, 0, cnt)
	index := r.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, r.records[index%h.maxRecords])
		index++
	}
	return recs, r.id
}

// Watch waits until the label has records newer than last, until
// expire passes, or until ctx is done, and returns the newest ID.
// An expire of zero polls.
func (h *History) Watch(ctx context.Context, label string, last int64, expire time.Duration) int64 {
	if expire <= 0 {
		return h.LastID(label)
	}
	ctx, cancel := context.WithTimeout(ctx, expire)
	defer cancel()

	cv := sync.NewCond(&h.mx)
	stop := context.AfterFunc(ctx, func() {
		h.lock()
		cv.Broadcast()
		h.unlock()
	})
	defer stop()

	h.lock()
	defer h.unlock()
	h.cvs[cv] = true
	r := h.getRing(label)
	for r.id == last && ctx.Err() == nil {
		cv.Wait()
	}
	delete(h.cvs, cv)
	return r.id
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = MaxLogRecords
	}
	return &History{
		rings:      make(map[string]*ring),
		maxRecords: max,
		cvs:        make(map[*sync.Cond]bool),
	}
}
