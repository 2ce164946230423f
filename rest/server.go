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
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutrilab/logvisor"
)

// Handler wraps a Supervisor, adding http.Handler functionality.
// Log requests are served from the History, which must be fed by the
// same poll cycle that relays to sinks.
type Handler struct {
	sup    *logvisor.Supervisor
	hist   *logvisor.History
	sinks  *logvisor.MultiSink
	r      *mux.Router
	logger *slog.Logger
	user   string
	hash   []byte
	quit   chan struct{}
	once   sync.Once
}

// SetAuth requires HTTP basic authentication, checking the password
// against a bcrypt hash.  An empty user disables authentication.
func (h *Handler) SetAuth(user string, hash []byte) {
	h.user = user
	h.hash = hash
}

func (h *Handler) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h.logger = l
}

// Close ends any log streams in progress.  Plain requests are not
// affected; use http.Server.Shutdown for those.
func (h *Handler) Close() {
	h.once.Do(func() { close(h.quit) })
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

func errorFor(e error) *Error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(e, logvisor.ErrUnknownLabel):
		code = http.StatusNotFound
	case errors.Is(e, logvisor.ErrShutdown):
		code = http.StatusServiceUnavailable
	case errors.Is(e, logvisor.ErrNotFound), errors.Is(e, logvisor.ErrSpawnFailure):
		code = http.StatusBadRequest
	}
	return &Error{Code: code, Message: e.Error()}
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.user != "" {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(h.user)) != 1 ||
				bcrypt.CompareHashAndPassword(h.hash, []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="logvisor"`)
				h.writeError(w, &Error{http.StatusUnauthorized, "Unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) findProcess(r *http.Request) (string, *Error) {
	label := mux.Vars(r)["label"]
	if _, e := h.sup.Handle(label); e != nil {
		return "", errorFor(e)
	}
	return label, nil
}

func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, h.sup.Labels())
}

func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request) {
	label := mux.Vars(r)["label"]
	if info, e := h.sup.Info(label); e != nil {
		h.writeError(w, errorFor(e))
	} else {
		h.writeJson(w, newProcessInfo(info))
	}
}

func (h *Handler) startProcess(w http.ResponseWriter, r *http.Request) {
	if e := h.sup.Start(mux.Vars(r)["label"]); e != nil {
		h.writeError(w, errorFor(e))
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) stopProcess(w http.ResponseWriter, r *http.Request) {
	var timeout time.Duration
	if s := r.URL.Query().Get("timeout"); s != "" {
		d, e := time.ParseDuration(s)
		if e != nil || d < 0 {
			h.writeError(w, &Error{http.StatusBadRequest, "Bad timeout: " + s})
			return
		}
		timeout = d
	}
	if e := h.sup.Stop(mux.Vars(r)["label"], timeout); e != nil {
		h.writeError(w, errorFor(e))
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) toggleProcess(w http.ResponseWriter, r *http.Request) {
	if e := h.sup.Toggle(mux.Vars(r)["label"]); e != nil {
		h.writeError(w, errorFor(e))
	} else {
		h.writeJson(w, ok)
	}
}

func pollTime(r *http.Request) time.Duration {
	secs, e := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if e != nil || secs <= 0 {
		return 0
	}
	if secs > MaxPollTime {
		secs = MaxPollTime
	}
	return time.Duration(secs) * time.Second
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	label, err := h.findProcess(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var last int64
	if s := r.URL.Query().Get("since"); s != "" {
		v, e := strconv.ParseInt(s, 10, 64)
		if e != nil {
			h.writeError(w, &Error{http.StatusBadRequest, "Bad since: " + s})
			return
		}
		last = v
	}
	if tag := r.Header.Get("If-None-Match"); tag != "" {
		if v, e := strconv.ParseInt(tag, 10, 64); e == nil {
			last = v
			if d := pollTime(r); d > 0 {
				h.hist.Watch(r.Context(), label, last, d)
			}
			if id := h.hist.LastID(label); id == last {
				w.Header().Set("Etag", tag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	recs, id := h.hist.GetRecords(label, last)
	if recs == nil {
		recs = []LogRecord{}
	}
	w.Header().Set("Etag", strconv.FormatInt(id, 10))
	h.writeJson(w, recs)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns a Handler serving sup.  The poll cycle must relay
// to sinks, and sinks must deliver to hist before any other sink added
// after construction, so that streams find their records there.
func NewHandler(sup *logvisor.Supervisor, hist *logvisor.History, sinks *logvisor.MultiSink) *Handler {
	r := mux.NewRouter()
	h := &Handler{
		sup:   sup,
		hist:  hist,
		sinks: sinks,
		r:     r,
		quit:  make(chan struct{}),
	}
	h.SetLogger(nil)
	r.Use(h.authenticate)
	r.HandleFunc("/processes", h.listProcesses).Methods("GET")
	r.HandleFunc("/processes/{label}", h.getProcess).Methods("GET")
	r.HandleFunc("/processes/{label}/start", h.startProcess).Methods("POST")
	r.HandleFunc("/processes/{label}/stop", h.stopProcess).Methods("POST")
	r.HandleFunc("/processes/{label}/toggle", h.toggleProcess).Methods("POST")
	r.HandleFunc("/processes/{label}/log", h.getLog).Methods("GET")
	r.HandleFunc("/processes/{label}/stream", h.streamLog).Methods("GET")
	return h
}
