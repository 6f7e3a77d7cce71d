// Package relay moves committed outbox rows onto the configured broker.
//
// Each poll runs in one database transaction: rows are claimed with
// SKIP LOCKED, published one at a time, and their bookkeeping (published,
// retry, dead-lettered) commits together. Delivery is at-least-once; the
// envelope's event_id lets consumers drop duplicates.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleBackoff = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type TxRunner interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Queue interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Exhaust(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type DeadLetters interface {
	Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type Resolver interface {
	Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type Observer interface {
	ObservePublish(eventType, outcome string)
}

// Deps wires a Relay. Metrics is optional.
type Deps struct {
	DB            TxRunner
	Queue         Queue
	DeadLetters   DeadLetters
	Resolver      Resolver
	Transport     outbox.Transport
	TransportName string
	Metrics       Observer
	Logger        *logger.Logger
}

type Relay struct {
	Deps
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func New(cfg config.OutboxConfig, deps Deps) (*Relay, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("relay: database is required")
	case deps.Queue == nil:
		return nil, errors.New("relay: outbox queue is required")
	case deps.DeadLetters == nil:
		return nil, errors.New("relay: dlq repository is required")
	case deps.Resolver == nil:
		return nil, errors.New("relay: event registry is required")
	case deps.Transport == nil:
		return nil, errors.New("relay: transport is required")
	case deps.Logger == nil:
		return nil, errors.New("relay: logger is required")
	}
	if deps.TransportName == "" {
		deps.TransportName = "transport"
	}
	return &Relay{
		Deps:        deps,
		batchSize:   positiveOr(cfg.BatchSize, 50),
		maxAttempts: positiveOr(cfg.MaxAttempts, 10),
		interval:    time.Duration(positiveOr(cfg.PollIntervalMS, 500)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// another poll; an empty one waits one interval. Batch errors back off
// exponentially up to maxIdleBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.DB.Ping(ctx); err != nil {
		return fmt.Errorf("relay: database ping: %w", err)
	}
	if err := r.Transport.Ping(ctx); err != nil {
		return fmt.Errorf("relay: %s ping: %w", r.TransportName, err)
	}

	delay := r.interval
	for ctx.Err() == nil {
		report, err := r.Drain(ctx)
		switch {
		case err != nil:
			r.Logger.Error(ctx, "outbox relay batch failed", err)
			delay = min(delay*2, maxIdleBackoff)
		case report.Claimed > 0:
			delay = r.interval
			if report.Claimed == r.batchSize {
				continue
			}
		default:
			delay = r.interval
		}
		if err := sleep(ctx, delay+jitter()); err != nil {
			break
		}
	}
	r.Logger.Info(ctx, "outbox relay stopped")
	return ctx.Err()
}

// Report counts what happened to the rows of one batch.
type Report struct {
	Claimed      int
	Published    int
	Retried      int
	DeadLettered int
}

// Drain claims one batch and settles every row in it.
func (r *Relay) Drain(ctx context.Context) (Report, error) {
	var report Report
	err := r.DB.WithTx(ctx, func(tx *gorm.DB) error {
		report = Report{}
		rows, err := r.Queue.Claim(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		report.Claimed = len(rows)
		for _, row := range rows {
			outcome, err := r.settle(ctx, tx, row)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomePublished:
				report.Published++
			case outcomeRetry:
				report.Retried++
			case outcomeDeadLettered:
				report.DeadLettered++
			}
			if r.Metrics != nil {
				r.Metrics.ObservePublish(row.EventType.String(), string(outcome))
			}
		}
		return nil
	})
	if err == nil && report.Claimed > 0 {
		r.Logger.Info(r.Logger.WithFields(ctx, map[string]any{
			"claimed":       report.Claimed,
			"published":     report.Published,
			"retried":       report.Retried,
			"dead_lettered": report.DeadLettered,
			"transport":     r.TransportName,
		}), "outbox batch settled")
	}
	return report, err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jitter() time.Duration {
	return rand.N(jitterWindow)
}
