package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/fill-controller/internal/logic"
)

// OutboxSize is the number of messages kept while the broker is unreachable.
const OutboxSize = 100

// RealPublisher publishes to an actual MQTT broker. Messages published
// while disconnected are queued and replayed after the next connect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu       sync.Mutex
	outbox   *outbox
	flushing bool
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// not reachable at startup is not fatal: the client keeps retrying in the
// background and messages are queued meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		topic:  Topic,
		outbox: newOutbox(OutboxSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			go p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, queueing messages", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a fill event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(message{topic: p.topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// send publishes m, or queues it while disconnected or while older
// messages are still being replayed.
func (p *RealPublisher) send(m message) error {
	p.mu.Lock()
	if p.flushing || !p.client.IsConnectionOpen() {
		p.outbox.add(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(m)
}

func (p *RealPublisher) publish(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// flush replays queued messages in order. Messages sent during the replay
// are queued behind it and replayed by the same loop.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.outbox.len() == 0 || !p.client.IsConnectionOpen() {
			p.flushing = false
			p.mu.Unlock()
			return
		}
		msgs, dropped := p.outbox.take()
		p.mu.Unlock()

		log.Printf("mqtt: replaying %d queued messages (%d dropped)", len(msgs), dropped)
		for _, m := range msgs {
			if err := p.publish(m); err != nil {
				log.Printf("mqtt: replay error: %v", err)
			}
		}
	}
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
