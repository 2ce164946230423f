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
	"strings"
	"sync"
	"time"

	"github.com/golang-collections/collections/queue"
)

// LogLine is a single line of output captured from a managed process.
// Raw is the line as the process printed it (less the line terminator),
// Text is the message with the severity tag removed.
type LogLine struct {
	Time     time.Time
	Raw      string
	Text     string
	Severity Severity
}

// NewLogLine stamps and classifies a raw line.
func NewLogLine(t time.Time, raw string) LogLine {
	raw = strings.TrimRight(raw, "\r\n")
	sev, text := splitTag(raw)
	return LogLine{Time: t, Raw: raw, Text: text, Severity: sev}
}

// Queue is an unbounded FIFO of LogLines.  It is safe for one producer and
// one consumer to use concurrently.
type Queue struct {
	q    *queue.Queue
	lock sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{q: queue.New()}
}

func (q *Queue) Push(l LogLine) {
	q.lock.Lock()
	q.q.Enqueue(l)
	q.lock.Unlock()
}

// Drain removes and returns everything queued so far, oldest first.  It
// never waits for more lines; the result is nil if the queue is empty.
func (q *Queue) Drain() []LogLine {
	q.lock.Lock()
	defer q.lock.Unlock()

	n := q.q.Len()
	if n == 0 {
		return nil
	}
	lines := make([]LogLine, 0, n)
	for q.q.Len() > 0 {
		lines = append(lines, q.q.Dequeue().(LogLine))
	}
	return lines
}

func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.q.Len()
}
