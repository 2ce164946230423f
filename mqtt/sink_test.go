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

package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nutrilab/logvisor"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes.  Methods we do not call are left to the
// embedded nil interface.
type fakeClient struct {
	pahomqtt.Client
	lock         sync.Mutex
	msgs         []published
	connected    bool
	disconnected bool
	err          error
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.lock.Lock()
	defer f.lock.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	f.msgs = append(f.msgs, published{topic, qos, retained, b})
	return newToken(f.err)
}

func (f *fakeClient) IsConnected() bool {
	return f.connected
}

func (f *fakeClient) Disconnect(uint) {
	f.disconnected = true
}

func TestSink(t *testing.T) {
	Convey("Given a sink", t, func() {
		fc := &fakeClient{connected: true}
		s := NewSink(fc, "plant/line1/")
		So(s.LogTopic("opcua"), ShouldEqual, "plant/line1/opcua/log")
		So(s.StateTopic("opcua"), ShouldEqual, "plant/line1/opcua/state")

		Convey("Each relayed line is published", func() {
			now := time.Now()
			s.Relay("opcua", []logvisor.LogLine{
				logvisor.NewLogLine(now, "[OK] ready"),
				logvisor.NewLogLine(now, "[Error] lost sensor"),
			})
			So(len(fc.msgs), ShouldEqual, 2)
			m := fc.msgs[1]
			So(m.topic, ShouldEqual, "plant/line1/opcua/log")
			So(m.qos, ShouldEqual, byte(0))
			So(m.retained, ShouldBeFalse)

			var v map[string]any
			So(json.Unmarshal(m.payload, &v), ShouldBeNil)
			So(v["severity"], ShouldEqual, "error")
			So(v["text"], ShouldEqual, "lost sensor")
			So(v["raw"], ShouldEqual, "[Error] lost sensor")
			So(v["label"], ShouldEqual, "opcua")
		})

		Convey("State changes are retained", func() {
			s.StateChanged(logvisor.HandleInfo{
				Label: "opcua", State: logvisor.StateRunning, PID: 77, ExitCode: -1,
			})
			So(len(fc.msgs), ShouldEqual, 1)
			m := fc.msgs[0]
			So(m.topic, ShouldEqual, "plant/line1/opcua/state")
			So(m.retained, ShouldBeTrue)

			var v map[string]any
			So(json.Unmarshal(m.payload, &v), ShouldBeNil)
			So(v["state"], ShouldEqual, "running")
			So(v["running"], ShouldEqual, true)
			So(v["pid"], ShouldEqual, 77.0)
		})

		Convey("Publish failures do not stop the relay", func() {
			fc.err = errors.New("not connected")
			s.Relay("opcua", []logvisor.LogLine{
				logvisor.NewLogLine(time.Now(), "a"),
				logvisor.NewLogLine(time.Now(), "b"),
			})
			So(len(fc.msgs), ShouldEqual, 2)
		})

		Convey("Close goes offline and disconnects", func() {
			s.Close()
			So(fc.disconnected, ShouldBeTrue)
			So(len(fc.msgs), ShouldEqual, 1)
			So(fc.msgs[0].topic, ShouldEqual, "plant/line1/status")
			So(string(fc.msgs[0].payload), ShouldEqual, "offline")
		})
	})

	Convey("An empty topic uses the default", t, func() {
		s := NewSink(&fakeClient{}, "")
		So(s.StatusTopic(), ShouldEqual, DefaultTopic+"/status")
	})

	Convey("The sink works behind a MultiSink", t, func() {
		fc := &fakeClient{connected: true}
		m := logvisor.NewMultiSink(NewSink(fc, "x"))
		m.Relay("a", []logvisor.LogLine{logvisor.NewLogLine(time.Now(), "hi")})
		m.StateChanged(logvisor.HandleInfo{Label: "a"})
		So(len(fc.msgs), ShouldEqual, 2)
	})
}
