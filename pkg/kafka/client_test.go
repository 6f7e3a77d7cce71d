package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
)

type fakeWriter struct {
	topic    string
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestClient(t *testing.T) (*Client, map[string]*fakeWriter) {
	t.Helper()
	c, err := NewClient(context.Background(), config.KafkaConfig{Brokers: "b1:9092,b2:9092"}, nil)
	require.NoError(t, err)
	created := map[string]*fakeWriter{}
	c.newWriter = func(topic string) messageWriter {
		w := &fakeWriter{topic: topic}
		created[topic] = w
		return w
	}
	return c, created
}

func TestNewClientRequiresBrokers(t *testing.T) {
	_, err := NewClient(context.Background(), config.KafkaConfig{Brokers: " , "}, nil)
	require.Error(t, err)
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	c, created := newTestClient(t)

	msg := outbox.Message{
		Key:        "order-1",
		Data:       []byte(`{"event_type":"order.created"}`),
		Attributes: map[string]string{"event_type": "order.created"},
	}
	require.NoError(t, c.Publish(context.Background(), "order-events", msg))
	require.NoError(t, c.Publish(context.Background(), "order-events", msg))

	w := created["order-events"]
	require.NotNil(t, w)
	require.Len(t, w.messages, 2)
	assert.Len(t, created, 1)
	assert.Equal(t, []byte("order-1"), w.messages[0].Key)
	assert.Equal(t, msg.Data, w.messages[0].Value)
	require.Len(t, w.messages[0].Headers, 1)
	assert.Equal(t, "event_type", w.messages[0].Headers[0].Key)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	c, _ := newTestClient(t)
	c.newWriter = func(topic string) messageWriter { return &fakeWriter{err: errors.New("leader not available")} }

	err := c.Publish(context.Background(), "order-events", outbox.Message{Key: "k"})
	require.Error(t, err)
}

func TestPublishRequiresTopic(t *testing.T) {
	c, _ := newTestClient(t)
	require.Error(t, c.Publish(context.Background(), "", outbox.Message{}))
}

func TestCloseClosesWriters(t *testing.T) {
	c, created := newTestClient(t)
	require.NoError(t, c.Publish(context.Background(), "a", outbox.Message{}))
	require.NoError(t, c.Publish(context.Background(), "b", outbox.Message{}))

	require.NoError(t, c.Close())
	assert.True(t, created["a"].closed)
	assert.True(t, created["b"].closed)
}
