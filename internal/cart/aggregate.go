package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

// The functions in this file mutate a loaded cart in memory. They never touch
// storage; the service persists the result with a version-checked save.

// AddItem adds quantity of a product (or one of its variants) to the cart. An
// existing line keeps the unit price captured when it was first added.
func AddItem(c *models.Cart, product *models.Product, variantID *uuid.UUID, quantity int, now time.Time) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	variant, available, err := resolveStock(product, variantID)
	if err != nil {
		return err
	}

	if available < quantity {
		return pkgerrors.InsufficientStock(product.ID, variantID, available, quantity)
	}

	if idx := lineIndex(c, product.ID, variantID); idx >= 0 {
		line := &c.Items[idx]
		line.Quantity += quantity
		line.LineTotal = lineTotal(line.UnitPrice, line.Quantity)
	} else {
		unitPrice := unitPriceFor(product, variant)
		c.Items = append(c.Items, models.CartItem{
			CartID:    c.ID,
			ProductID: product.ID,
			VariantID: copyID(variantID),
			Quantity:  quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal(unitPrice, quantity),
			AddedAt:   now.UTC(),
		})
	}
	CalculateTotals(c)
	return nil
}

// UpdateQuantity overwrites the quantity of an existing line; zero removes it.
// product is only consulted for positive quantities.
func UpdateQuantity(c *models.Cart, productID uuid.UUID, variantID *uuid.UUID, quantity int, product *models.Product) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	idx := lineIndex(c, productID, variantID)
	if idx < 0 {
		return pkgerrors.ItemNotFound(productID)
	}
	if quantity == 0 {
		removeAt(c, idx)
		CalculateTotals(c)
		return nil
	}

	if product == nil {
		return pkgerrors.NotFound(pkgerrors.KindProduct, productID, "product not found")
	}
	_, available, err := resolveStock(product, variantID)
	if err != nil {
		return err
	}
	if available < quantity {
		return pkgerrors.InsufficientStock(productID, variantID, available, quantity)
	}

	line := &c.Items[idx]
	line.Quantity = quantity
	line.LineTotal = lineTotal(line.UnitPrice, quantity)
	CalculateTotals(c)
	return nil
}

// RemoveItem drops the matching line if present.
func RemoveItem(c *models.Cart, productID uuid.UUID, variantID *uuid.UUID) {
	if idx := lineIndex(c, productID, variantID); idx >= 0 {
		removeAt(c, idx)
	}
	CalculateTotals(c)
}

// Clear empties the cart.
func Clear(c *models.Cart) {
	c.Items = []models.CartItem{}
	CalculateTotals(c)
}

// CalculateTotals recomputes line totals, the cart total and the item count.
func CalculateTotals(c *models.Cart) {
	total := decimal.Zero
	count := 0
	for i := range c.Items {
		c.Items[i].LineTotal = lineTotal(c.Items[i].UnitPrice, c.Items[i].Quantity)
		total = total.Add(c.Items[i].LineTotal)
		count += c.Items[i].Quantity
	}
	c.TotalAmount = total.Round(2)
	c.ItemCount = count
}

// FilterUnavailable drops lines whose product is missing or inactive, or whose
// variant no longer exists, and returns how many lines were dropped.
func FilterUnavailable(c *models.Cart, catalog map[uuid.UUID]*models.Product) int {
	kept := c.Items[:0]
	dropped := 0
	for _, line := range c.Items {
		if lineAvailable(line, catalog[line.ProductID]) {
			kept = append(kept, line)
			continue
		}
		dropped++
	}
	c.Items = kept
	CalculateTotals(c)
	return dropped
}

// ProductIDs lists the distinct products referenced by the cart.
func ProductIDs(c *models.Cart) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(c.Items))
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, line := range c.Items {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func lineAvailable(line models.CartItem, product *models.Product) bool {
	if product == nil || !product.IsActive {
		return false
	}
	if line.VariantID != nil {
		_, ok := product.FindVariant(*line.VariantID)
		return ok
	}
	return true
}

func resolveStock(product *models.Product, variantID *uuid.UUID) (*models.ProductVariant, int, error) {
	if product == nil {
		return nil, 0, pkgerrors.NotFound(pkgerrors.KindProduct, uuid.Nil, "product not found")
	}
	if !product.IsActive {
		return nil, 0, pkgerrors.NotFound(pkgerrors.KindProduct, product.ID, "product not found")
	}
	if variantID == nil {
		return nil, product.StockQuantity, nil
	}
	variant, ok := product.FindVariant(*variantID)
	if !ok {
		return nil, 0, pkgerrors.VariantNotFound(product.ID, *variantID)
	}
	return variant, variant.StockQuantity, nil
}

func unitPriceFor(product *models.Product, variant *models.ProductVariant) decimal.Decimal {
	price := product.Price
	if variant != nil {
		price = price.Add(variant.PriceAdjustment)
	}
	return price.Round(2)
}

func lineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func lineIndex(c *models.Cart, productID uuid.UUID, variantID *uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && sameVariant(c.Items[i].VariantID, variantID) {
			return i
		}
	}
	return -1
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func removeAt(c *models.Cart, idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
