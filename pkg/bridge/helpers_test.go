// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestSession(t *testing.T, hub *dominotest.Hub) *domino.Session {
	t.Helper()
	return domino.NewSession(hub.Opener(),
		domino.WithLogger(quietLogger()),
		domino.WithPolling(time.Millisecond, 2),
		domino.WithSettleTime(0))
}

// busModules emulates dimmers, relay modules and sensors on one hub.
type busModules struct {
	mu      sync.Mutex
	words   map[byte]uint16 // READ_STATUS answers
	flags   map[byte][2]byte
	outputs map[byte]byte // READ_OUTPUTS data2
	relays  map[byte]bool // modules that apply masked writes
}

func newBusModules() *busModules {
	return &busModules{
		words:   make(map[byte]uint16),
		flags:   make(map[byte][2]byte),
		outputs: make(map[byte]byte),
		relays:  make(map[byte]bool),
	}
}

func (b *busModules) respond(req domino.Frame) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	mod := req.Module()
	switch req.Function() {
	case domino.FuncReadStatus:
		if f, ok := b.flags[mod]; ok {
			return [][]byte{dominotest.Reply(mod, 0x01, f[0], f[1])}
		}
		if w, ok := b.words[mod]; ok {
			return [][]byte{dominotest.Word(mod, w)}
		}
	case domino.FuncReadOutputs:
		if v, ok := b.outputs[mod]; ok {
			return [][]byte{dominotest.Reply(mod, 0x01, 0x00, v)}
		}
	case domino.FuncWrite:
		_, data := req.Data()
		if b.relays[mod] {
			mask := data >> 4
			b.outputs[mod] = b.outputs[mod]&^mask | data&mask&0x0F
		} else {
			b.outputs[mod] = data
		}
		return [][]byte{dominotest.Reply(mod, 0x01, 0x00, 0x00)}
	}
	return nil
}

func (b *busModules) output(mod byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outputs[mod]
}

// recordingSink remembers everything published to it.
type recordingSink struct {
	mu           sync.Mutex
	announced    []Info
	states       map[string][]State
	availability map[string][]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		states:       make(map[string][]State),
		availability: make(map[string][]bool),
	}
}

func (r *recordingSink) Announce(_ context.Context, infos []Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced = append(r.announced, infos...)
	return nil
}

func (r *recordingSink) PublishState(_ context.Context, info Info, st State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[info.UniqueID] = append(r.states[info.UniqueID], st)
	return nil
}

func (r *recordingSink) PublishAvailability(_ context.Context, info Info, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability[info.UniqueID] = append(r.availability[info.UniqueID], available)
	return nil
}

func (r *recordingSink) lastState(uid string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.states[uid]
	if len(s) == 0 {
		return State{}, false
	}
	return s[len(s)-1], true
}

// fakeToken is an already completed paho token.
type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient records publishes and subscriptions.
type fakeClient struct {
	mu         sync.Mutex
	published  []published
	subscribed map[string]paho.MessageHandler
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: make(map[string]paho.MessageHandler)}
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() paho.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(uint)        {}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var p string
	switch v := payload.(type) {
	case string:
		p = v
	case []byte:
		p = string(v)
	}
	c.published = append(c.published, published{topic: topic, retained: retained, payload: p})
	return fakeToken{err: c.publishErr}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = cb
	return fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) paho.Token        { return fakeToken{} }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)    {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func (c *fakeClient) find(topic string) (published, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].topic == topic {
			return c.published[i], true
		}
	}
	return published{}, false
}

// fakeMessage is an incoming MQTT message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}
