package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

var (
	// ErrVersionConflict means another writer saved the cart since it was loaded.
	ErrVersionConflict = errors.New("cart version conflict")
	// ErrCartExists means a concurrent request created the owner's cart first.
	ErrCartExists = errors.New("cart already exists for owner")
)

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByOwner loads the owner's cart with its lines in insertion order.
func (r *Repository) FindByOwner(ctx context.Context, kind enums.CartOwnerKind, key string) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("added_at ASC, id ASC")
		}).
		Where("owner_kind = ? AND owner_key = ?", kind, key).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	if record.Items == nil {
		record.Items = []models.CartItem{}
	}
	return &record, nil
}

// Create inserts an empty cart.
func (r *Repository) Create(ctx context.Context, record *models.Cart) error {
	record.Version = 0
	err := r.db.WithContext(ctx).Omit("Items").Create(record).Error
	if db.IsUniqueViolation(err, "owner") {
		return ErrCartExists
	}
	return err
}

// SaveVersioned writes the cart only if its stored version still matches the
// loaded one, bumps the version, and replaces the lines.
func (r *Repository) SaveVersioned(ctx context.Context, record *models.Cart) error {
	conn := r.db.WithContext(ctx)
	expected := record.Version
	now := time.Now().UTC()

	res := conn.Model(&models.Cart{}).
		Where("id = ? AND version = ?", record.ID, expected).
		Updates(map[string]any{
			"total_amount": record.TotalAmount,
			"item_count":   record.ItemCount,
			"version":      gorm.Expr("version + 1"),
			"expires_at":   record.ExpiresAt,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}

	if err := conn.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(record.Items) > 0 {
		for i := range record.Items {
			record.Items[i].CartID = record.ID
		}
		if err := conn.Create(&record.Items).Error; err != nil {
			return err
		}
	}

	record.Version = expected + 1
	record.UpdatedAt = now
	return nil
}

// Delete removes a cart and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.deleteIDs(ctx, []uuid.UUID{id})
}

// ExpiredGuestIDs lists up to limit guest carts whose expiry is before now, oldest first.
func (r *Repository) ExpiredGuestIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("owner_kind = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.CartOwnerGuest, now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteExpiredGuests removes up to limit guest carts whose expiry is before now.
func (r *Repository) DeleteExpiredGuests(ctx context.Context, now time.Time, limit int) (int64, error) {
	ids, err := r.ExpiredGuestIDs(ctx, now, limit)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return r.deleteExpired(ctx, ids, now)
}

// DeleteIfExpired removes a guest cart only if it is still expired at now. A
// cart refreshed after it was listed is left alone and false is returned.
func (r *Repository) DeleteIfExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	n, err := r.deleteExpired(ctx, []uuid.UUID{id}, now)
	return n > 0, err
}

// deleteExpired re-checks expiry in the delete itself; lines go with their
// cart through the foreign key cascade and are swept explicitly for drivers
// that do not enforce it.
func (r *Repository) deleteExpired(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	conn := r.db.WithContext(ctx)
	res := conn.
		Where("id IN ?", ids).
		Where("owner_kind = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.CartOwnerGuest, now.UTC()).
		Delete(&models.Cart{})
	if res.Error != nil || res.RowsAffected == 0 {
		return 0, res.Error
	}
	survivors := r.db.WithContext(ctx).Model(&models.Cart{}).Select("id").Where("id IN ?", ids)
	if err := conn.Where("cart_id IN ? AND cart_id NOT IN (?)", ids, survivors).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (r *Repository) deleteIDs(ctx context.Context, ids []uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return conn.Where("id IN ?", ids).Delete(&models.Cart{}).Error
}
