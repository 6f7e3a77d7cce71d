package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/internal/cart"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
)

const (
	defaultGuestCartBatch = 500
	maxGuestCartBatches   = 20
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type guestCartRepo interface {
	WithTx(tx *gorm.DB) cart.CartRepository
	ExpiredGuestIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// GuestCartExpiryJobParams configure the guest cart sweeper.
type GuestCartExpiryJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository guestCartRepo
	BatchSize  int
}

func NewGuestCartExpiryJob(params GuestCartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultGuestCartBatch
	}
	return &guestCartExpiryJob{
		logg:  params.Logger,
		db:    params.DB,
		repo:  params.Repository,
		batch: batch,
		now:   time.Now,
	}, nil
}

type guestCartExpiryJob struct {
	logg  *logger.Logger
	db    txRunner
	repo  guestCartRepo
	batch int
	now   func() time.Time
}

func (j *guestCartExpiryJob) Name() string { return "guest-cart-expiry" }

// Run deletes expired guest carts one transaction per cart, skipping any cart
// refreshed since it was listed. A failing cart is recorded and the sweep
// stops after the current batch so it is not re-listed forever within one run.
func (j *guestCartExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		errs    error
		deleted int
		failed  int
	)
	for batch := 0; batch < maxGuestCartBatches; batch++ {
		ids, err := j.repo.ExpiredGuestIDs(ctx, now, j.batch)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list expired guest carts: %w", err))
			break
		}
		for _, id := range ids {
			removed, err := j.deleteCart(ctx, id, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete guest cart %s: %w", id, err))
				failed++
				continue
			}
			if removed {
				deleted++
			}
		}
		if len(ids) < j.batch || failed > 0 || ctx.Err() != nil {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       now,
		"carts_purged": deleted,
		"carts_failed": failed,
	})
	j.logg.Info(logCtx, "guest cart expiry sweep complete")
	return errs
}

func (j *guestCartExpiryJob) deleteCart(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var removed bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = j.repo.WithTx(tx).DeleteIfExpired(ctx, id, now)
		return err
	})
	return removed, err
}
