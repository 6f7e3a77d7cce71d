package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/pagination"
)

// readOutcome reports what MarkRead found for a (user, notification) pair.
type readOutcome int

const (
	readMissing readOutcome = iota
	readAlready
	readMarked
)

type inboxQuery struct {
	UserID     uuid.UUID
	After      *pagination.Cursor
	Fetch      int
	UnreadOnly bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, q inboxQuery) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (readOutcome, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// inbox scopes a query to one user's notifications.
func (r *repository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *repository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *repository) List(ctx context.Context, q inboxQuery) ([]models.Notification, error) {
	query := r.inbox(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var rows []models.Notification
	err := pagination.Keyset(query, q.After).Limit(q.Fetch).Find(&rows).Error
	return rows, err
}

// MarkRead stamps read_at once. A notification owned by someone else is
// reported as missing.
func (r *repository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (readOutcome, error) {
	var current models.Notification
	err := r.inbox(ctx, userID).Select("id", "read_at").Where("id = ?", id).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return readMissing, nil
	}
	if err != nil {
		return readMissing, err
	}
	if current.ReadAt != nil {
		return readAlready, nil
	}
	err = r.inbox(ctx, userID).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at).Error
	if err != nil {
		return readMissing, err
	}
	return readMarked, nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore purges read notifications created before cutoff.
func (r *repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL").
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
