package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client publishes outbox messages to Kafka, one writer per topic.
type Client struct {
	brokers      []string
	writeTimeout time.Duration
	newWriter    func(topic string) messageWriter

	mu      sync.Mutex
	writers map[string]messageWriter
}

// NewClient validates the broker list; writers are created lazily per topic.
func NewClient(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	c := &Client{
		brokers:      brokers,
		writeTimeout: cfg.WriteTimeout,
		writers:      make(map[string]messageWriter),
	}
	c.newWriter = c.defaultWriter
	if logg != nil {
		logg.Info(logg.WithField(ctx, "brokers", brokers), "kafka client initialized")
	}
	return c, nil
}

func (c *Client) defaultWriter(topic string) messageWriter {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: c.writeTimeout,
	}
}

func (c *Client) writer(topic string) messageWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := c.newWriter(topic)
	c.writers[topic] = w
	return w
}

// Publish writes msg keyed by msg.Key so events of one aggregate stay on one partition.
func (c *Client) Publish(ctx context.Context, topic string, msg outbox.Message) error {
	if c == nil || c.newWriter == nil {
		return errors.New("kafka client not initialized")
	}
	if topic == "" {
		return errors.New("kafka topic is required")
	}
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return c.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
}

// Ping dials the first reachable broker.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("kafka client not initialized")
	}
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close closes every writer created so far.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
	}
	c.writers = map[string]messageWriter{}
	return errors.Join(errs...)
}
