// Package registry routes outbox rows to broker topics and decodes their
// typed payloads.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/payloads"
)

// Topics names the destination for each aggregate family.
type Topics struct {
	Orders        string
	Notifications string
}

func (t Topics) forAggregate(agg enums.OutboxAggregateType) string {
	switch agg {
	case enums.AggregateOrder:
		return t.Orders
	case enums.AggregateNotification:
		return t.Notifications
	}
	return ""
}

// Route describes where one event type goes and what its data decodes into.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.Envelope
	Payload  any
}

// Permanent marks a failure that retrying cannot fix. The relay parks such
// rows in the DLQ right away.
type Permanent struct {
	Err error
}

func (p Permanent) Error() string {
	if p.Err == nil {
		return "permanent failure"
	}
	return p.Err.Error()
}

func (p Permanent) Unwrap() error { return p.Err }

func permanent(format string, args ...any) error {
	return Permanent{Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err, or anything it wraps, is a Permanent.
func IsPermanent(err error) bool {
	var p Permanent
	return errors.As(err, &p)
}

func route[T any](event enums.OutboxEventType, agg enums.OutboxAggregateType) Route {
	return Route{
		EventType:     event,
		AggregateType: agg,
		newPayload:    func() any { return new(T) },
	}
}

var routes = []Route{
	route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder),
	route[payloads.OrderCancelledEvent](enums.EventOrderCancelled, enums.AggregateOrder),
	route[payloads.OrderPaymentEvent](enums.EventOrderPaid, enums.AggregateOrder),
	route[payloads.OrderPaymentEvent](enums.EventOrderPaymentFailed, enums.AggregateOrder),
	route[payloads.OrderRefundedEvent](enums.EventOrderRefunded, enums.AggregateOrder),
	route[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
	route[payloads.NotificationRequestedEvent](enums.EventNotificationRequested, enums.AggregateNotification),
}

// Registry holds the route table for a configured set of topics.
type Registry struct {
	byType map[enums.OutboxEventType]Route
}

func New(topics Topics) (*Registry, error) {
	if topics.Orders == "" || topics.Notifications == "" {
		return nil, errors.New("registry: orders and notifications topics are required")
	}
	reg := &Registry{byType: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, r := range routes {
		r.Topic = topics.forAggregate(r.AggregateType)
		reg.byType[r.EventType] = r
	}
	return reg, nil
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is Permanent.
func (r *Registry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.byType[row.EventType]
	if !ok {
		return nil, permanent("no route for event type %q", row.EventType)
	}
	if row.AggregateType != rt.AggregateType {
		return nil, permanent("%s belongs to %s aggregates, row says %s", row.EventType, rt.AggregateType, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return nil, permanent("%s row %s has no aggregate id", row.EventType, row.ID)
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent{Err: err}
	}
	if env.EventType != "" && env.EventType != row.EventType {
		return nil, permanent("envelope event type %s does not match row %s", env.EventType, row.EventType)
	}

	payload := rt.newPayload()
	if err := env.DecodeData(payload); err != nil {
		return nil, Permanent{Err: err}
	}
	return &ResolvedEvent{Route: rt, Envelope: env, Payload: payload}, nil
}
