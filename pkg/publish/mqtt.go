// Package publish sends decoded readings to an MQTT broker.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/reading"
)

const (
	publishTimeout = time.Second
	quiesceMillis  = 250
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes readings as retained JSON messages.
type MQTT struct {
	client Client
	topic  string

	published atomic.Int64
	failed    atomic.Int64
}

// Connect connects to cfg.Broker and returns a publisher for cfg.Topic.
func Connect(cfg config.MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("publish: connected to MQTT broker at %s", cfg.Broker)

	return New(client, cfg.Topic), nil
}

// New returns a publisher using an already connected client.
func New(client Client, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Publish sends one reading. Readings are retained so late subscribers get
// the latest values right away.
func (p *MQTT) Publish(r reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.failed.Add(1)
		return fmt.Errorf("publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.published.Add(1)
	return nil
}

// Run publishes readings from in until it is closed. Failures are logged and
// the reading is dropped.
func (p *MQTT) Run(in <-chan reading.Reading) {
	for r := range in {
		if err := p.Publish(r); err != nil {
			log.Printf("publish: %v", err)
		}
	}
}

// Stats returns the number of published and failed readings.
func (p *MQTT) Stats() (published, failed int64) {
	return p.published.Load(), p.failed.Load()
}

// Close disconnects from the broker.
func (p *MQTT) Close() {
	p.client.Disconnect(quiesceMillis)
}
