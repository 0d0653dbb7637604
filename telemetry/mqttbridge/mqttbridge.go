// Package mqttbridge is an optional host-side bridge that republishes
// periodic-status payloads onto MQTT, for fleet monitoring of a bench of
// Jaguar controllers. Grounded on raptor-core's paho wiring (connect
// options, command/state topic split, QoS 1 publish).
package mqttbridge

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jaguarmc/core/internal/jlog"
	"github.com/jaguarmc/core/pstat"
)

// Config mirrors raptor-core's broker-URL/client-ID/credential triple.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// Site and DeviceNumber compose the topic, "jaguar/<site>/<dev>/status/<slot>".
	Site         string
	DeviceNumber uint8
}

// Bridge republishes pstat.Fired slot payloads under QoS 1, matching
// raptor-core's state-topic publish pattern.
type Bridge struct {
	client mqtt.Client
	topic  string
}

// New connects to the broker and returns a Bridge. Connection failure is
// a programmer/deployment-visible error (§7: errors are for misuse, not
// runtime hardware faults), so it is returned rather than logged and
// swallowed.
func New(cfg Config) (*Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if tok := client.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		return nil, fmt.Errorf("mqttbridge: connect: %w", tok.Error())
	}

	topic := fmt.Sprintf("jaguar/%s/%d/status", cfg.Site, cfg.DeviceNumber)
	return &Bridge{client: client, topic: topic}, nil
}

// Publish republishes every fired periodic-status slot under its own
// sub-topic. Publish failures are logged, not returned, since the
// control tick that produced fired must never block on network I/O.
func (b *Bridge) Publish(fired []pstat.Fired) {
	for _, f := range fired {
		topic := fmt.Sprintf("%s/%d", b.topic, f.Slot)
		tok := b.client.Publish(topic, 1, false, f.Payload)
		go func(topic string, tok mqtt.Token) {
			if !tok.WaitTimeout(time.Second) || tok.Error() != nil {
				jlog.Errorf("mqttbridge: publish %s: %v", topic, tok.Error())
			}
		}(topic, tok)
	}
}

// Close disconnects from the broker, mirroring raptor-core's
// deferred mc.Disconnect(250).
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
