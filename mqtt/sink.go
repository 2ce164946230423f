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

// Package mqtt relays supervised process output and state changes to an
// MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nutrilab/logvisor"
)

const (
	DefaultTopic = "logvisor"

	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
	keepAlive         = 60 * time.Second
)

var ErrConnectionFailed = errors.New("MQTT connection failed")

type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string // topic prefix, DefaultTopic if empty
	ClientID string
	Username string
	Password string
}

// Sink publishes each relayed line on <topic>/<label>/log, and each state
// change on <topic>/<label>/state (retained).  The daemon's availability
// is kept retained on <topic>/status.
type Sink struct {
	client pahomqtt.Client
	topic  string
	logger *slog.Logger
}

type logMessage struct {
	Label    string            `json:"label"`
	Time     time.Time         `json:"time"`
	Severity logvisor.Severity `json:"severity"`
	Text     string            `json:"text"`
	Raw      string            `json:"raw"`
}

type stateMessage struct {
	Label      string    `json:"label"`
	State      string    `json:"state"`
	Running    bool      `json:"running"`
	PID        int       `json:"pid,omitempty"`
	RunID      string    `json:"runId,omitempty"`
	ExitCode   int       `json:"exitCode"`
	ExitReason string    `json:"exitReason,omitempty"`
	Time       time.Time `json:"time"`
}

func (s *Sink) LogTopic(label string) string {
	return s.topic + "/" + label + "/log"
}

func (s *Sink) StateTopic(label string) string {
	return s.topic + "/" + label + "/state"
}

func (s *Sink) StatusTopic() string {
	return s.topic + "/status"
}

func (s *Sink) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = l.With("component", "mqtt")
}

// check logs a publish failure if the token has already completed.  We
// never wait here, as we are called from the poll cycle.
func (s *Sink) check(topic string, tok pahomqtt.Token) {
	select {
	case <-tok.Done():
		if e := tok.Error(); e != nil {
			s.logger.Warn("publish failed", "topic", topic, "error", e)
		}
	default:
	}
}

func (s *Sink) Relay(label string, lines []logvisor.LogLine) {
	topic := s.LogTopic(label)
	for _, l := range lines {
		b, e := json.Marshal(&logMessage{
			Label:    label,
			Time:     l.Time,
			Severity: l.Severity,
			Text:     l.Text,
			Raw:      l.Raw,
		})
		if e != nil {
			s.logger.Warn("cannot encode line", "label", label, "error", e)
			continue
		}
		s.check(topic, s.client.Publish(topic, 0, false, b))
	}
}

func (s *Sink) StateChanged(info logvisor.HandleInfo) {
	topic := s.StateTopic(info.Label)
	b, e := json.Marshal(&stateMessage{
		Label:      info.Label,
		State:      info.State.String(),
		Running:    info.State == logvisor.StateRunning,
		PID:        info.PID,
		RunID:      info.RunID,
		ExitCode:   info.ExitCode,
		ExitReason: info.ExitReason,
		Time:       time.Now(),
	})
	if e != nil {
		s.logger.Warn("cannot encode state", "label", info.Label, "error", e)
		return
	}
	s.check(topic, s.client.Publish(topic, 1, true, b))
}

// Close marks the daemon offline and disconnects.
func (s *Sink) Close() {
	if s.client.IsConnected() {
		tok := s.client.Publish(s.StatusTopic(), 1, true, "offline")
		tok.WaitTimeout(publishTimeout)
	}
	s.client.Disconnect(disconnectQuiesce)
}

// NewSink wraps an existing client.
func NewSink(c pahomqtt.Client, topic string) *Sink {
	topic = strings.TrimRight(topic, "/")
	if topic == "" {
		topic = DefaultTopic
	}
	s := &Sink{client: c, topic: topic}
	s.SetLogger(nil)
	return s
}

// Connect connects to the broker and returns a Sink using it.  The client
// reconnects on its own if the connection is later lost.
func Connect(cfg Config, logger *slog.Logger) (*Sink, error) {
	s := NewSink(nil, cfg.Topic)
	s.SetLogger(logger)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(s.StatusTopic(), "offline", 1, true)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		c.Publish(s.StatusTopic(), 1, true, "online")
		s.logger.Info("connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, e error) {
		s.logger.Warn("connection lost", "broker", cfg.Broker, "error", e)
	})

	s.client = pahomqtt.NewClient(opts)
	tok := s.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if e := tok.Error(); e != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, e)
	}
	return s, nil
}
