package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// RealPublisher publishes to an actual MQTT broker. While the broker is
// unreachable, messages are held in a ring buffer and replayed in order
// on reconnect.
type RealPublisher struct {
	client paho.Client

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The initial
// connection is attempted for up to ten seconds; if the broker is not
// reachable yet the publisher still starts, buffering messages until the
// auto-reconnect succeeds. A power supervisor must never be held up by
// its observability.
func NewRealPublisher(broker string, bufferCap int) *RealPublisher {
	p := &RealPublisher{
		buffer: newRingBuffer(bufferCap),
	}

	// Random client ID suffix so two supervisors on one broker never
	// kick each other off.
	clientID := "power-supervisor-" + uuid.NewString()[:8]

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.replayBuffered()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until reconnect", broker)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: connect to %s: %v (will retry)", broker, err)
	}

	return p
}

// Publish sends a transition event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(Topic, payload, 0, false)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(TopicSystem, payload, 1, event.Retained)
}

// send publishes one message, diverting to the offline buffer when the
// broker is down.
func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buffer.len()
		p.mu.Unlock()
		log.Printf("mqtt: broker down, buffered message (%d pending)", n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replayBuffered flushes the offline buffer after a (re)connect.
func (p *RealPublisher) replayBuffered() {
	p.mu.Lock()
	msgs, dropped := p.buffer.drainAll()
	p.mu.Unlock()

	if dropped > 0 {
		log.Printf("mqtt: %d buffered messages lost to overflow", dropped)
	}
	if len(msgs) == 0 {
		return
	}

	log.Printf("mqtt: connected, replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay on %s: %v", m.topic, err)
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
