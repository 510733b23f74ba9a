// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dominohub/dominobus/pkg/config"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
)

func newTestMQTTSink(handler CommandHandler) (*MQTTSink, *fakeClient) {
	cfg := config.Default()
	s := newMQTTSink(cfg.MQTT, cfg.HomeAssistant, handler, quietLogger())
	client := newFakeClient()
	s.client = client
	return s, client
}

func TestMQTTSink_AnnounceSensor(t *testing.T) {
	s, client := newTestMQTTSink(nil)
	info := Info{
		UniqueID:    "domino_sensor_temp_30",
		Name:        "Kitchen",
		Component:   ComponentSensor,
		Unit:        "°C",
		DeviceClass: "temperature",
		StateClass:  "measurement",
	}
	if err := s.Announce(context.Background(), []Info{info}); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}

	msg, ok := client.find("homeassistant/sensor/domino_sensor_temp_30/config")
	if !ok {
		t.Fatal("no discovery config published")
	}
	if !msg.retained {
		t.Error("discovery config not retained")
	}

	var d discoveryConfig
	if err := json.Unmarshal([]byte(msg.payload), &d); err != nil {
		t.Fatalf("invalid discovery JSON: %v", err)
	}
	if d.StateTopic != "domino/domino_sensor_temp_30/state" {
		t.Errorf("state_topic = %s", d.StateTopic)
	}
	if d.UnitOfMeasurement != "°C" || d.DeviceClass != "temperature" || d.StateClass != "measurement" {
		t.Errorf("sensor attributes = %+v", d)
	}
	if d.CommandTopic != "" {
		t.Errorf("sensor has command_topic %s", d.CommandTopic)
	}
	if d.Device.Name != "Domino Hub" || len(d.Device.Identifiers) != 1 {
		t.Errorf("device = %+v", d.Device)
	}
	if len(d.Availability) != 2 || d.Availability[0].Topic != "domino/status" || d.AvailabilityMode != "all" {
		t.Errorf("availability = %+v mode %s", d.Availability, d.AvailabilityMode)
	}
}

func TestMQTTSink_AnnounceLights(t *testing.T) {
	s, _ := newTestMQTTSink(nil)

	dimmer := s.discovery(Info{UniqueID: "domino_dimmer_23", Component: ComponentLight, Dimmable: true})
	if dimmer.Schema != "json" || dimmer.CommandTopic != "domino/domino_dimmer_23/set" {
		t.Errorf("dimmer discovery = %+v", dimmer)
	}
	if len(dimmer.SupportedColorModes) != 1 || dimmer.SupportedColorModes[0] != "brightness" || dimmer.BrightnessScale != 255 {
		t.Errorf("dimmer color modes = %v scale %d", dimmer.SupportedColorModes, dimmer.BrightnessScale)
	}

	relay := s.discovery(Info{UniqueID: "domino_light_12_3", Component: ComponentLight})
	if len(relay.SupportedColorModes) != 1 || relay.SupportedColorModes[0] != "onoff" || relay.BrightnessScale != 0 {
		t.Errorf("relay color modes = %v scale %d", relay.SupportedColorModes, relay.BrightnessScale)
	}
}

func TestMQTTSink_PublishState(t *testing.T) {
	s, client := newTestMQTTSink(nil)
	ctx := context.Background()

	info := Info{UniqueID: "domino_dimmer_23", Component: ComponentLight, Dimmable: true}
	if err := s.PublishState(ctx, info, State{On: true, Brightness: 64}); err != nil {
		t.Fatalf("PublishState failed: %v", err)
	}
	msg, _ := client.find("domino/domino_dimmer_23/state")
	if msg.payload != `{"state":"ON","brightness":64}` {
		t.Errorf("state payload = %s", msg.payload)
	}

	if err := s.PublishAvailability(ctx, info, false); err != nil {
		t.Fatalf("PublishAvailability failed: %v", err)
	}
	msg, _ = client.find("domino/domino_dimmer_23/availability")
	if msg.payload != PayloadOffline {
		t.Errorf("availability payload = %s", msg.payload)
	}
}

func TestMQTTSink_PublishError(t *testing.T) {
	s, client := newTestMQTTSink(nil)
	client.publishErr = errors.New("not authorized")
	err := s.PublishState(context.Background(), Info{UniqueID: "x", Component: ComponentSensor}, State{Value: "1"})
	if err == nil {
		t.Error("PublishState ignored the broker error")
	}
}

func TestMQTTSink_OnConnect(t *testing.T) {
	s, client := newTestMQTTSink(func(context.Context, string, Command) error { return nil })
	s.onConnect(client)

	msg, ok := client.find("domino/status")
	if !ok || msg.payload != PayloadOnline || !msg.retained {
		t.Errorf("status = %+v (found %v), want retained online", msg, ok)
	}
	if _, ok := client.subscribed["domino/+/set"]; !ok {
		t.Error("command topic not subscribed")
	}
}

func TestMQTTSink_CommandEntity(t *testing.T) {
	s, _ := newTestMQTTSink(nil)
	tests := []struct {
		topic string
		uid   string
		ok    bool
	}{
		{"domino/domino_dimmer_23/set", "domino_dimmer_23", true},
		{"domino/domino_dimmer_23/state", "", false},
		{"other/domino_dimmer_23/set", "", false},
		{"domino//set", "", false},
		{"domino/a/b/set", "", false},
	}
	for _, tt := range tests {
		uid, ok := s.commandEntity(tt.topic)
		if uid != tt.uid || ok != tt.ok {
			t.Errorf("commandEntity(%s) = %q, %v; want %q, %v", tt.topic, uid, ok, tt.uid, tt.ok)
		}
	}
}

func TestMQTTSink_HandleMessage(t *testing.T) {
	var gotUID string
	var gotCmd Command
	calls := 0
	s, _ := newTestMQTTSink(func(_ context.Context, uid string, cmd Command) error {
		calls++
		gotUID, gotCmd = uid, cmd
		return nil
	})

	s.handleMessage(fakeMessage{topic: "domino/domino_dimmer_23/set", payload: []byte(`{"state":"ON","brightness":10}`)})
	if calls != 1 || gotUID != "domino_dimmer_23" || gotCmd.State != StateOn || *gotCmd.Brightness != 10 {
		t.Errorf("handler got %q %+v after %d calls", gotUID, gotCmd, calls)
	}

	s.handleMessage(fakeMessage{topic: "domino/domino_dimmer_23/set", payload: []byte(`garbage`)})
	s.handleMessage(fakeMessage{topic: "domino/status", payload: []byte(`ON`)})
	if calls != 1 {
		t.Errorf("handler called %d times, want invalid messages dropped", calls)
	}
}

func TestMQTTSink_EndToEnd(t *testing.T) {
	bus := newBusModules()
	bus.relays[12] = true
	bus.outputs[12] = 0
	s := newTestSession(t, dominotest.NewHub(bus.respond))

	entities, _ := Build(config.DevicesConfig{Lights: []config.LightConfig{{Module: 12, Num: 2}}}, s)
	sink, client := newTestMQTTSink(nil)
	b := New(entities, []Sink{sink}, WithLogger(quietLogger()))
	sink.handler = b.HandleCommand

	sink.handleMessage(fakeMessage{topic: "domino/domino_light_12_2/set", payload: []byte(`{"state":"ON"}`)})

	if bus.output(12) != 0x02 {
		t.Errorf("relay outputs = 0x%02X, want 0x02", bus.output(12))
	}
	msg, ok := client.find("domino/domino_light_12_2/state")
	if !ok || msg.payload != `{"state":"ON"}` {
		t.Errorf("echoed state = %q (found %v)", msg.payload, ok)
	}
}
