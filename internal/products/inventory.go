package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory applies stock movements inside a caller-owned transaction.
type Inventory struct {
	repo *Repository
}

func NewInventory(repo *Repository) *Inventory {
	return &Inventory{repo: repo}
}

// Reserve decrements stock, returning ErrStockUnavailable when fewer than qty
// units remain.
func (i *Inventory) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive")
	}
	return i.repo.WithTx(tx).AdjustStock(ctx, productID, variantID, -qty)
}

// Restock returns qty units to the product or variant.
func (i *Inventory) Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restock quantity must be positive")
	}
	return i.repo.WithTx(tx).AdjustStock(ctx, productID, variantID, qty)
}

// Available reports live stock for a product or variant.
func (i *Inventory) Available(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	return i.repo.WithTx(tx).AvailableStock(ctx, productID, variantID)
}
