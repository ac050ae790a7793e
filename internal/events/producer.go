package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is done, then flushes what is left
// in the inbox and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							log.Printf("[WARN] Producer: close writer: %v", err)
						}
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		log.Printf("[ERROR] Producer: write %s: %v", m.Key, err)
	}
}

// Enqueue hands a message to the writer loop. It reports false when the
// inbox is full.
func (p *Producer) Enqueue(key, value []byte, headers ...kafka.Header) bool {
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return true
	default:
		return false
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closeCh }

// KafkaPublisher wraps lifecycle payloads in an Envelope and enqueues them
// keyed by correlation id.
type KafkaPublisher struct {
	producer *Producer
	service  string
}

func NewKafkaPublisher(producer *Producer, service string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, service: service}
}

func (k *KafkaPublisher) Publish(_ context.Context, eventType, correlationID string, payload any) {
	env, err := NewEnvelope(k.service, eventType, correlationID, payload)
	if err != nil {
		log.Printf("[ERROR] Publish: %s: %v", eventType, err)
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		log.Printf("[ERROR] Publish: %s: %v", eventType, err)
		return
	}
	if !k.producer.Enqueue([]byte(correlationID), b, kafka.Header{Key: "event_type", Value: []byte(eventType)}) {
		log.Printf("[WARN] Publish: inbox full, dropped %s %s", eventType, env.EventID)
	}
}

func NewEnvelope(producer, eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}
