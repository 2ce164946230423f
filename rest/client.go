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
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// LogInfo is a batch of log records, together with the id of the
// newest record the server had when it answered.
type LogInfo struct {
	Label   string
	ID      int64
	Records []LogRecord
}

type Client struct {
	user      string // HTTP Basic-Auth
	pass      string
	base      string // URI to root of tree on server
	auth      bool
	client    *http.Client
	transport *http.Transport
	timeout   time.Duration
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(label string) string {
	if label == "" {
		return c.base + "/processes"
	}
	return c.base + "/processes/" + url.PathEscape(label)
}

// do issues a request and decodes a JSON reply into v.  A reply of
// 304 Not Modified is reported with a nil error and an empty etag.
func (c *Client) do(ctx context.Context, method, u string, hdr http.Header, v interface{}) (string, error) {
	req, e := http.NewRequestWithContext(ctx, method, u, nil)
	if e != nil {
		return "", e
	}
	for k, vals := range hdr {
		req.Header[k] = vals
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	body, e := io.ReadAll(res.Body)
	if e != nil {
		return "", e
	}
	if res.StatusCode != http.StatusOK {
		re := &Error{}
		if json.Unmarshal(body, re) != nil || re.Message == "" {
			re = &Error{Code: res.StatusCode, Message: res.Status}
		}
		return "", re
	}
	if v != nil {
		if e := json.Unmarshal(body, v); e != nil {
			return "", e
		}
	}
	return res.Header.Get("Etag"), nil
}

func (c *Client) get(u string, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_, e := c.do(ctx, "GET", u, nil, v)
	return e
}

func (c *Client) post(u string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_, e := c.do(ctx, "POST", u, nil, nil)
	return e
}

// Processes returns the labels of the processes known to the server,
// in the order the server was configured with.
func (c *Client) Processes() ([]string, error) {
	var v []string
	if e := c.get(c.url(""), &v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) GetProcess(label string) (*ProcessInfo, error) {
	v := &ProcessInfo{}
	if e := c.get(c.url(label), v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) StartProcess(label string) error {
	return c.post(c.url(label) + "/start")
}

// StopProcess stops the process, allowing it timeout to exit after
// SIGTERM.  A zero timeout uses the process's own stop time.
func (c *Client) StopProcess(label string, timeout time.Duration) error {
	u := c.url(label) + "/stop"
	if timeout > 0 {
		u += "?timeout=" + url.QueryEscape(timeout.String())
	}
	// The server may legitimately take the whole timeout.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout+timeout)
	defer cancel()
	_, e := c.do(ctx, "POST", u, nil, nil)
	return e
}

func (c *Client) ToggleProcess(label string) error {
	return c.post(c.url(label) + "/toggle")
}

// GetLog returns the records newer than since, or all that are kept
// when since is zero.
func (c *Client) GetLog(label string, since int64) (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.pollLog(ctx, label, since, 0)
}

// WatchLog waits until the log has records newer than last, and returns
// only those.  If nothing changes for several minutes, the returned
// LogInfo has no records; call again with it.  A nil last returns the
// whole log at once.
func (c *Client) WatchLog(ctx context.Context, label string, last *LogInfo) (*LogInfo, error) {
	if last == nil {
		return c.pollLog(ctx, label, 0, 0)
	}
	return c.pollLog(ctx, label, last.ID, MaxPollTime)
}

func (c *Client) pollLog(ctx context.Context, label string, since int64, secs int) (*LogInfo, error) {
	u := c.url(label) + "/log"
	hdr := http.Header{}
	if since != 0 {
		if secs > 0 {
			hdr.Set("If-None-Match", strconv.FormatInt(since, 10))
			hdr.Set(PollTimeHeader, strconv.Itoa(secs))
		} else {
			u += "?since=" + strconv.FormatInt(since, 10)
		}
	}
	v := &LogInfo{Label: label}
	etag, e := c.do(ctx, "GET", u, hdr, &v.Records)
	if e != nil {
		return nil, e
	}
	if etag == "" {
		v.ID = since
		return v, nil
	}
	if v.ID, e = strconv.ParseInt(etag, 10, 64); e != nil {
		return nil, e
	}
	return v, nil
}

// Follow streams new log records of a process to fn until ctx is done
// or the connection fails.  A since of zero starts with the output
// relayed after the stream is opened.
func (c *Client) Follow(ctx context.Context, label string, since int64, fn func(LogRecord)) error {
	u := c.url(label) + "/stream"
	if since != 0 {
		u += "?since=" + strconv.FormatInt(since, 10)
	}
	switch {
	case strings.HasPrefix(u, "https:"):
		u = "wss:" + u[len("https:"):]
	case strings.HasPrefix(u, "http:"):
		u = "ws:" + u[len("http:"):]
	}
	hdr := http.Header{}
	if c.auth {
		cred := base64.StdEncoding.EncodeToString([]byte(c.user + ":" + c.pass))
		hdr.Set("Authorization", "Basic "+cred)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.timeout,
		TLSClientConfig:  c.transport.TLSClientConfig,
	}
	conn, res, e := dialer.DialContext(ctx, u, hdr)
	if e != nil {
		if res != nil && res.StatusCode != http.StatusSwitchingProtocols {
			return &Error{Code: res.StatusCode, Message: res.Status}
		}
		return e
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var rec LogRecord
		if e := conn.ReadJSON(&rec); e != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(e, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return e
		}
		fn(rec)
	}
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	c := &Client{
		transport: t,
		base:      strings.TrimRight(baseURI, "/"),
		client:    &http.Client{Transport: t},
		timeout:   5 * time.Second,
	}
	return c
}
