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

package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nutrilab/logvisor"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// follower is a sink that wakes a stream when its label has new output.
type follower struct {
	label string
	wake  chan struct{}
}

func (f *follower) Relay(label string, lines []logvisor.LogLine) {
	if label != f.label {
		return
	}
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// streamLog sends each new log record of a process as a JSON text
// message.  With ?since=<id> the records after id are sent first,
// otherwise only output relayed after the connection is made.
func (h *Handler) streamLog(w http.ResponseWriter, r *http.Request) {
	label, err := h.findProcess(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	last := h.hist.LastID(label)
	if s := r.URL.Query().Get("since"); s != "" {
		v, e := strconv.ParseInt(s, 10, 64)
		if e != nil {
			h.writeError(w, &Error{http.StatusBadRequest, "Bad since: " + s})
			return
		}
		last = v
	}

	conn, e := upgrader.Upgrade(w, r, nil)
	if e != nil {
		// Upgrade has already replied.
		h.logger.Debug("websocket upgrade failed", "error", e)
		return
	}
	defer conn.Close()

	f := &follower{label: label, wake: make(chan struct{}, 1)}
	remove := h.sinks.AddSink(f)
	defer remove()
	h.logger.Debug("stream opened", "label", label, "remote", r.RemoteAddr)

	// We never expect anything from the client, but reading is how we
	// notice that it went away, and it lets pongs through.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, e := conn.ReadMessage(); e != nil {
				if websocket.IsUnexpectedCloseError(e, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Warn("websocket read error", "label", label, "error", e)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		var recs []LogRecord
		recs, last = h.hist.GetRecords(label, last)
		for _, rec := range recs {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if e := conn.WriteJSON(rec); e != nil {
				return
			}
		}
		select {
		case <-gone:
			return
		case <-h.quit:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		case <-f.wake:
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if e := conn.WriteMessage(websocket.PingMessage, nil); e != nil {
				return
			}
		}
	}
}
