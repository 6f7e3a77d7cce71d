package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

const schemaVersion = 1

var errEmptyData = errors.New("envelope data is empty")

// Actor is the principal that triggered a domain event.
type Actor struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role,omitempty"`
}

func CustomerActor(userID uuid.UUID) *Actor {
	return &Actor{UserID: userID, Role: enums.UserRoleCustomer}
}

func AdminActor(userID uuid.UUID) *Actor {
	return &Actor{UserID: userID, Role: enums.UserRoleAdmin}
}

// Envelope is the JSON document stored in outbox_events.payload and shipped
// verbatim to the broker. Consumers can route on event_type and aggregate
// without reading the row columns.
type Envelope struct {
	SchemaVersion int                       `json:"schema_version"`
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *Actor                    `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

func newEnvelope(event DomainEvent) (Envelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	version := event.Version
	if version == 0 {
		version = schemaVersion
	}
	return Envelope{
		SchemaVersion: version,
		EventID:       uuid.NewString(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         event.Actor,
		Data:          data,
	}, nil
}

// DecodeEnvelope parses a stored payload. A missing or null data member is an
// error since no consumer can act on it.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	trimmed := bytes.TrimSpace(env.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Envelope{}, errEmptyData
	}
	return env, nil
}

// DecodeData unmarshals the envelope's data member into dest.
func (e Envelope) DecodeData(dest any) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	return nil
}
