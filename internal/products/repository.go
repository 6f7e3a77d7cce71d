package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
)

// ErrStockUnavailable is returned by AdjustStock when a decrement would drive
// stock below zero. No row is modified in that case.
var ErrStockUnavailable = errors.New("stock unavailable")

// Repository reads catalog listings and applies atomic stock deltas.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProductByID loads a product with its variants and category.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Category").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductsByIDs loads every listed product that exists, keyed by id.
// Missing ids are simply absent from the result.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Category").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// AdjustStock applies delta to the variant stock when variantID is set, else
// to the product stock. Negative deltas are conditional on enough stock being
// present so concurrent decrements can never oversell.
func (r *Repository) AdjustStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}

	var query *gorm.DB
	if variantID != nil {
		query = r.db.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *variantID, productID)
	} else {
		query = r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID)
	}
	if delta < 0 {
		query = query.Where("stock_quantity >= ?", -delta)
	}

	res := query.UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		if delta < 0 {
			return ErrStockUnavailable
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AvailableStock reads the current stock for a product or one of its variants.
func (r *Repository) AvailableStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	var stock int
	var err error
	if variantID != nil {
		err = r.db.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Select("stock_quantity").
			Where("id = ? AND product_id = ?", *variantID, productID).
			Scan(&stock).Error
	} else {
		err = r.db.WithContext(ctx).
			Model(&models.Product{}).
			Select("stock_quantity").
			Where("id = ?", productID).
			Scan(&stock).Error
	}
	return stock, err
}
