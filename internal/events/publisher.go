package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/products-api/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "product-events"

type EventType string

const (
	ProductCreated EventType = "product.created"
	ProductUpdated EventType = "product.updated"
	ProductDeleted EventType = "product.deleted"
)

type Event struct {
	ID         string          `json:"event_id"`
	Type       EventType       `json:"event_type"`
	ProductID  string          `json:"product_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Product    *domain.Product `json:"product"`
}

func NewEvent(t EventType, product *domain.Product) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ProductID:  product.ID.Hex(),
		OccurredAt: time.Now().UTC(),
		Product:    product,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ProductID), // per-product ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
