package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mfuentes/smartbed/internal/analysis"
	"github.com/mfuentes/smartbed/internal/history"
)

// offlineBufferSize bounds how many messages are held for replay while the
// broker is unreachable.
const offlineBufferSize = 512

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// RealPublisher publishes to an actual MQTT broker. While disconnected,
// messages accumulate in a bounded ring and replay in order once the
// connection comes back; the oldest messages drop on overflow.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *history.Ring[bufferedMsg]
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		pending: history.NewRing[bufferedMsg](offlineBufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.replay() })

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// PublishEvent sends a bed event to the MQTT broker.
func (p *RealPublisher) PublishEvent(event Event) error {
	payload, err := FormatEventPayload(event)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(TopicEvents, payload, 0, false)
}

// PublishAlert sends an alert to the MQTT broker.
func (p *RealPublisher) PublishAlert(alert Alert) error {
	payload, err := FormatAlertPayload(alert)
	if err != nil {
		return fmt.Errorf("format alert payload: %w", err)
	}
	// QoS 1 (at-least-once) for alerts - we want to ensure delivery
	return p.send(TopicAlerts, payload, 1, false)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(TopicSystem, payload, 1, event.Retained)
}

// PublishReport sends the end-of-session report, retained.
func (p *RealPublisher) PublishReport(report analysis.Report) error {
	payload, err := FormatReportPayload(report)
	if err != nil {
		return fmt.Errorf("format report payload: %w", err)
	}
	return p.send(TopicReport, payload, 1, true)
}

// Client exposes the underlying paho client so the wristband feed can
// subscribe over the same connection.
func (p *RealPublisher) Client() paho.Client {
	return p.client
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// send publishes immediately when connected, otherwise buffers for replay.
func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		p.buffer(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RealPublisher) buffer(msg bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dropped := p.pending.Push(msg); dropped {
		log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", p.pending.Cap())
	}
}

// replay flushes buffered messages in arrival order after a reconnect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.pending.Values()
	p.pending.Clear()
	p.mu.Unlock()

	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay %s: %v", m.topic, err)
		}
	}
}
