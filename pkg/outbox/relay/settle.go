package relay

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/registry"
)

type outcome string

const (
	outcomePublished    outcome = "published"
	outcomeRetry        outcome = "retry"
	outcomeDeadLettered outcome = "dead_lettered"
)

// settle publishes one row and records the result. The returned error is
// only for bookkeeping failures, which abort the whole batch.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	ctx = r.Logger.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	resolved, err := r.Resolver.Resolve(row)
	if err != nil {
		reason := enums.OutboxDLQReasonNonRetryable
		if !row.EventType.IsValid() {
			reason = enums.OutboxDLQReasonUnknownEvent
		}
		return r.deadLetter(ctx, tx, row, reason, err)
	}
	ctx = r.Logger.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Route.Topic,
	})

	pubErr := r.publish(ctx, row, resolved)
	switch {
	case pubErr == nil:
		if err := r.Queue.MarkPublished(tx, row.ID); err != nil {
			return "", fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.Logger.Info(ctx, "outbox event published")
		return outcomePublished, nil
	case registry.IsPermanent(pubErr):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, pubErr))
	}

	r.Logger.Warn(r.Logger.WithField(ctx, "error", pubErr.Error()), "outbox publish failed, will retry")
	if err := r.Queue.RecordFailure(tx, row.ID, pubErr); err != nil {
		return "", fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	return outcomeRetry, nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) (outcome, error) {
	r.Logger.Warn(r.Logger.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event dead-lettered")
	if err := r.DeadLetters.Park(tx, row, reason, cause); err != nil {
		return "", fmt.Errorf("park %s: %w", row.ID, err)
	}
	if err := r.Queue.Exhaust(tx, row.ID, cause, r.maxAttempts); err != nil {
		return "", fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	return outcomeDeadLettered, nil
}

// publish sends the stored envelope unchanged, keyed by aggregate id so a
// broker that partitions by key keeps per-aggregate ordering.
func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if resolved.Route.Topic == "" {
		return registry.Permanent{Err: fmt.Errorf("no topic configured for %s", row.EventType)}
	}
	msg := outbox.Message{
		Key:  row.AggregateID.String(),
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     row.EventType.String(),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.Transport.Publish(ctx, resolved.Route.Topic, msg)
}
