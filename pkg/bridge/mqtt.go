// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/dominohub/dominobus/pkg/config"
)

// Availability payloads
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

const mqttQoS = 1

// CommandHandler applies a command received for an entity.
type CommandHandler func(ctx context.Context, uniqueID string, cmd Command) error

// deviceInfo groups every entity under one Home Assistant device.
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

type availability struct {
	Topic string `json:"topic"`
}

// discoveryConfig is a Home Assistant MQTT discovery payload.
type discoveryConfig struct {
	Name                string         `json:"name"`
	UniqueID            string         `json:"unique_id"`
	StateTopic          string         `json:"state_topic"`
	CommandTopic        string         `json:"command_topic,omitempty"`
	Schema              string         `json:"schema,omitempty"`
	SupportedColorModes []string       `json:"supported_color_modes,omitempty"`
	BrightnessScale     int            `json:"brightness_scale,omitempty"`
	UnitOfMeasurement   string         `json:"unit_of_measurement,omitempty"`
	DeviceClass         string         `json:"device_class,omitempty"`
	StateClass          string         `json:"state_class,omitempty"`
	Options             []string       `json:"options,omitempty"`
	Availability        []availability `json:"availability"`
	AvailabilityMode    string         `json:"availability_mode"`
	Device              deviceInfo     `json:"device"`
}

// MQTTSink publishes Home Assistant discovery, state and availability,
// and receives light commands.
type MQTTSink struct {
	client paho.Client
	cfg    config.MQTTConfig
	ha     config.HAConfig
	log    logrus.FieldLogger

	handler CommandHandler
	timeout time.Duration
}

// NewMQTTSink creates a sink for the configured broker. handler receives
// light commands; it may be nil for a publish-only sink.
func NewMQTTSink(cfg config.MQTTConfig, ha config.HAConfig, handler CommandHandler, log logrus.FieldLogger) *MQTTSink {
	s := newMQTTSink(cfg, ha, handler, log)

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)

	// The broker marks every entity unavailable if the bridge drops off
	opts.SetWill(s.statusTopic(), PayloadOffline, mqttQoS, true)

	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.log.Errorf("MQTT connection lost: %v", err)
	})

	s.client = paho.NewClient(opts)
	return s
}

func newMQTTSink(cfg config.MQTTConfig, ha config.HAConfig, handler CommandHandler, log logrus.FieldLogger) *MQTTSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MQTTSink{
		cfg:     cfg,
		ha:      ha,
		log:     log.WithField("sink", "mqtt"),
		handler: handler,
		timeout: 10 * time.Second,
	}
}

func (s *MQTTSink) statusTopic() string {
	return s.cfg.BaseTopic + "/status"
}

func (s *MQTTSink) stateTopic(uid string) string {
	return s.cfg.BaseTopic + "/" + uid + "/state"
}

func (s *MQTTSink) availabilityTopic(uid string) string {
	return s.cfg.BaseTopic + "/" + uid + "/availability"
}

func (s *MQTTSink) commandTopic(uid string) string {
	return s.cfg.BaseTopic + "/" + uid + "/set"
}

func (s *MQTTSink) discoveryTopic(info Info) string {
	return fmt.Sprintf("%s/%s/%s/config", s.ha.DiscoveryPrefix, info.Component, info.UniqueID)
}

// onConnect runs on every (re)connection: it restores the online status
// and the command subscription.
func (s *MQTTSink) onConnect(c paho.Client) {
	s.log.Info("Connected to MQTT broker")
	if token := c.Publish(s.statusTopic(), mqttQoS, true, PayloadOnline); token.Wait() && token.Error() != nil {
		s.log.Warnf("Error publishing online status on connect: %v", token.Error())
	}
	if s.handler == nil {
		return
	}
	filter := s.cfg.BaseTopic + "/+/set"
	token := c.Subscribe(filter, mqttQoS, func(_ paho.Client, m paho.Message) {
		// Commands touch the bus; keep paho's network loop free
		go s.handleMessage(m)
	})
	if token.Wait() && token.Error() != nil {
		s.log.Errorf("Error subscribing to %s: %v", filter, token.Error())
	}
}

func (s *MQTTSink) handleMessage(m paho.Message) {
	uid, ok := s.commandEntity(m.Topic())
	if !ok {
		s.log.Warnf("Ignoring message on %s", m.Topic())
		return
	}
	cmd, err := ParseCommand(m.Payload())
	if err != nil {
		s.log.WithField("entity", uid).Warnf("Ignoring command: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.handler(ctx, uid, cmd); err != nil {
		s.log.WithField("entity", uid).Errorf("Command failed: %v", err)
	}
}

// commandEntity extracts the unique ID from a command topic.
func (s *MQTTSink) commandEntity(topic string) (string, bool) {
	uid, ok := strings.CutPrefix(topic, s.cfg.BaseTopic+"/")
	if !ok {
		return "", false
	}
	uid, ok = strings.CutSuffix(uid, "/set")
	if !ok || uid == "" || strings.Contains(uid, "/") {
		return "", false
	}
	return uid, true
}

// Connect connects to the broker, retrying until it succeeds or ctx is done.
func (s *MQTTSink) Connect(ctx context.Context) error {
	attempt := 1
	for {
		token := s.client.Connect()
		err := s.wait(ctx, token)
		if err == nil {
			s.log.Infof("MQTT connected after %d attempts", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("MQTT connection cancelled: %w", ctx.Err())
		}

		s.log.Errorf("MQTT connection failed (attempt %d): %v", attempt, err)
		s.log.Infof("Retrying in %v...", s.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("MQTT connection cancelled: %w", ctx.Err())
		case <-time.After(s.cfg.RetryDelay):
			attempt++
		}
	}
}

// Close publishes the offline status and disconnects.
func (s *MQTTSink) Close() {
	if !s.client.IsConnected() {
		return
	}
	token := s.client.Publish(s.statusTopic(), mqttQoS, true, PayloadOffline)
	token.WaitTimeout(2 * time.Second)
	s.client.Disconnect(250)
}

// Announce publishes a retained discovery config per entity.
func (s *MQTTSink) Announce(ctx context.Context, infos []Info) error {
	for _, info := range infos {
		payload, err := json.Marshal(s.discovery(info))
		if err != nil {
			return fmt.Errorf("error serializing discovery for %s: %w", info.UniqueID, err)
		}
		s.log.Debugf("Publishing discovery: %s", s.discoveryTopic(info))
		if err := s.publish(ctx, s.discoveryTopic(info), true, payload); err != nil {
			return fmt.Errorf("error publishing discovery for %s: %w", info.UniqueID, err)
		}
	}
	return nil
}

func (s *MQTTSink) discovery(info Info) discoveryConfig {
	d := discoveryConfig{
		Name:       info.Name,
		UniqueID:   info.UniqueID,
		StateTopic: s.stateTopic(info.UniqueID),
		Availability: []availability{
			{Topic: s.statusTopic()},
			{Topic: s.availabilityTopic(info.UniqueID)},
		},
		AvailabilityMode: "all",
		Device: deviceInfo{
			Identifiers:  []string{"domino_hub_main_hub"},
			Name:         s.ha.DeviceName,
			Manufacturer: "Domino",
			Model:        "Domino Serial Hub",
		},
	}

	switch info.Component {
	case ComponentLight:
		d.Schema = "json"
		d.CommandTopic = s.commandTopic(info.UniqueID)
		d.SupportedColorModes = []string{"onoff"}
		if info.Dimmable {
			d.SupportedColorModes = []string{"brightness"}
			d.BrightnessScale = MaxBrightness
		}
	default:
		d.UnitOfMeasurement = info.Unit
		d.DeviceClass = info.DeviceClass
		d.StateClass = info.StateClass
		d.Options = info.Options
	}
	return d
}

// PublishState publishes a retained state.
func (s *MQTTSink) PublishState(ctx context.Context, info Info, st State) error {
	payload, err := info.Payload(st)
	if err != nil {
		return err
	}
	return s.publish(ctx, s.stateTopic(info.UniqueID), true, payload)
}

// PublishAvailability publishes the entity's own availability.
func (s *MQTTSink) PublishAvailability(ctx context.Context, info Info, available bool) error {
	payload := PayloadOffline
	if available {
		payload = PayloadOnline
	}
	return s.publish(ctx, s.availabilityTopic(info.UniqueID), true, []byte(payload))
}

func (s *MQTTSink) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	return s.wait(ctx, s.client.Publish(topic, mqttQoS, retained, payload))
}

// wait blocks until token completes, ctx is done or the sink timeout passes.
func (s *MQTTSink) wait(ctx context.Context, token paho.Token) error {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("MQTT operation timed out after %v", s.timeout)
	}
}
