package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/logger"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 90
)

// retentionJob deletes rows that aged past a fixed window. purge owns the
// definition of "aged": published outbox rows, read notifications.
type retentionJob struct {
	name  string
	days  int
	logg  *logger.Logger
	purge func(ctx context.Context, cutoff time.Time) (int64, error)
	now   func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	n, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":            j.name,
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   n,
	}), "retention sweep complete")
	return nil
}

func orDefault(days, fallback int) int {
	if days > 0 {
		return days
	}
	return fallback
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository interface {
		DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
	}
	Retention int
}

// NewOutboxRetentionJob prunes published outbox rows. Unpublished and
// dead-lettered rows are never touched.
func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	if p.Logger == nil || p.DB == nil || p.Repository == nil {
		return nil, errors.New("outbox retention: logger, db and repository are required")
	}
	return &retentionJob{
		name: "outbox-retention",
		days: orDefault(p.Retention, outboxRetentionDays),
		logg: p.Logger,
		now:  time.Now,
		purge: func(ctx context.Context, cutoff time.Time) (n int64, err error) {
			err = p.DB.WithTx(ctx, func(tx *gorm.DB) error {
				n, err = p.Repository.DeletePublishedBefore(tx, cutoff)
				return err
			})
			return n, err
		},
	}, nil
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention int
}

// NewNotificationCleanupJob prunes read notifications. Unread ones stay
// until the user reads them.
func NewNotificationCleanupJob(p NotificationCleanupJobParams) (Job, error) {
	if p.Logger == nil || p.Repository == nil {
		return nil, errors.New("notification cleanup: logger and repository are required")
	}
	return &retentionJob{
		name:  "notification-cleanup",
		days:  orDefault(p.Retention, notificationRetentionDays),
		logg:  p.Logger,
		now:   time.Now,
		purge: p.Repository.DeleteReadBefore,
	}, nil
}
