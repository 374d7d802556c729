package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/products-api/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func testProduct() *domain.Product {
	return domain.NewProduct(domain.ProductFields{
		Title:       "lamp",
		Description: "desk lamp",
		Price:       19.99,
		Phone:       5550100,
	}, time.Now())
}

func TestNewEvent(t *testing.T) {
	p := testProduct()
	p.ID = primitive.NewObjectID()

	ev := NewEvent(ProductCreated, p)

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ProductCreated, ev.Type)
	assert.Equal(t, p.ID.Hex(), ev.ProductID)
	assert.Same(t, p, ev.Product)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestPublish_WritesKeyedMessage(t *testing.T) {
	w := &recordingWriter{}
	pub := &KafkaPublisher{writer: w}

	p := testProduct()
	p.ID = primitive.NewObjectID()
	ev := NewEvent(ProductUpdated, p)

	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, []byte(p.ID.Hex()), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "product.updated", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded["event_id"])
	assert.Equal(t, "product.updated", decoded["event_type"])
	product, ok := decoded["product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lamp", product["title"])
	assert.Equal(t, p.ID.Hex(), product["_id"])
}

func TestPublish_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	pub := &KafkaPublisher{writer: w}

	p := testProduct()
	err := pub.Publish(context.Background(), NewEvent(ProductDeleted, p))
	require.ErrorContains(t, err, "broker down")
}

func TestClose(t *testing.T) {
	w := &recordingWriter{}
	pub := &KafkaPublisher{writer: w}

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_DefaultTopic(t *testing.T) {
	pub := NewKafkaPublisher("", "localhost:9092")
	defer pub.Close()

	kw, ok := pub.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, kw.Topic)
}
