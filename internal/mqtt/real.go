package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"feeder_control"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("feeder-control").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client}, nil
}

// PublishStatus sends a status snapshot to the MQTT broker.
func (p *RealPublisher) PublishStatus(st feeder_control.Status) error {
	payload, err := FormatStatusPayload(st)
	if err != nil {
		return fmt.Errorf("format status payload: %w", err)
	}

	// QoS 0 (at-most-once), retained so late subscribers see the last snapshot
	token := p.client.Publish(TopicStatus, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish status timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}

	return nil
}

// PublishEvent sends a feed cycle event to the MQTT broker.
func (p *RealPublisher) PublishEvent(event string, rec feeder_control.FeedRecord) error {
	payload, err := FormatEventPayload(event, rec)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}

	// QoS 1 (at-least-once) for cycle events - we want to ensure delivery
	token := p.client.Publish(TopicEvents, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish event timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
