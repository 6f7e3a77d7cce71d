package outbox

import "context"

// Message is the broker-neutral form of a published outbox row.
type Message struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Transport delivers messages to a named topic. Implementations block until
// the broker acknowledges the write.
type Transport interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}
