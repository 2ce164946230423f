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
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// maxLineLength is the longest line captured as one LogLine; longer lines
// are split.
const maxLineLength = 64 * 1024

// capture reads the merged output of a run until the stream closes,
// queueing one LogLine per line, and then a final line describing how the
// process exited.  Nothing stops it but the end of the stream.
func (h *ProcessHandle) capture(r *run, rd io.ReadCloser) {
	defer close(r.captured)
	defer rd.Close()

	e := readLines(rd, func(s string) {
		h.queue.Push(NewLogLine(time.Now(), strings.ToValidUTF8(s, "�")))
	})
	if e != nil {
		h.logger.Debug("output stream closed", "pid", r.pid, "error", e)
	}

	select {
	case <-r.exited:
	case <-time.After(exitWait):
		// The process closed its output but lives on.  Say so, and
		// report the exit once it happens.
		h.push("[Warning] output closed, process still running")
		<-r.exited
	}
	h.push(exitMessage(&r.status, e))
}

// readLines hands each line of r to fn.  A read error ends the stream the
// same as EOF does; it is returned so the caller can report it.
func readLines(r io.Reader, fn func(string)) error {
	br := bufio.NewReaderSize(r, maxLineLength)
	for {
		b, e := br.ReadSlice('\n')
		if len(b) != 0 {
			fn(string(b))
		}
		switch e {
		case nil, bufio.ErrBufferFull:
		case io.EOF:
			return nil
		default:
			return e
		}
	}
}

// exitMessage renders the synthetic final line of a run.
func exitMessage(st *exitStatus, readErr error) string {
	var msg string
	switch {
	case st.signal != "":
		msg = "[Stopped] process killed by signal: " + st.signal
	case st.err != nil:
		msg = fmt.Sprintf("[Error] process exited: returncode=unknown (%v)", st.err)
	case st.code != 0:
		msg = fmt.Sprintf("[Error] process exited: returncode=%d", st.code)
	default:
		msg = "[Exited] returncode=0"
	}
	if readErr != nil {
		msg += fmt.Sprintf(" (read error: %v)", readErr)
	}
	return msg
}
