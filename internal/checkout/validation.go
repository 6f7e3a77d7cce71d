package checkout

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/types"
)

// ValidateInput normalizes the shipping address and checks the payment method.
func ValidateInput(input Input) (Input, error) {
	if input.UserID == uuid.Nil {
		return input, pkgerrors.New(pkgerrors.CodeUnauthorized, "checkout requires an authenticated user")
	}
	if !input.PaymentMethod.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	addr := input.ShippingAddress.Normalize()
	if missing := missingAddressFields(addr); len(missing) > 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string][]string{"missing": missing})
	}
	input.ShippingAddress = addr
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		if trimmed == "" {
			input.Notes = nil
		} else {
			input.Notes = &trimmed
		}
	}
	return input, nil
}

// ValidateLines checks every cart line against live catalog data, in cart
// order, and reports the first failure.
func ValidateLines(record *models.Cart, catalog map[uuid.UUID]*models.Product) error {
	if record == nil || len(record.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	for _, line := range record.Items {
		product := catalog[line.ProductID]
		if product == nil || !product.IsActive {
			return pkgerrors.ProductUnavailable(line.ProductID)
		}
		available := product.StockQuantity
		if line.VariantID != nil {
			variant, ok := product.FindVariant(*line.VariantID)
			if !ok {
				return pkgerrors.ProductUnavailable(line.ProductID)
			}
			available = variant.StockQuantity
		}
		if available < line.Quantity {
			return pkgerrors.InsufficientStock(line.ProductID, line.VariantID, available, line.Quantity)
		}
	}
	return nil
}

func missingAddressFields(addr types.ShippingAddress) []string {
	var missing []string
	for name, value := range map[string]string{
		"full_name":   addr.FullName,
		"line1":       addr.Line1,
		"city":        addr.City,
		"state":       addr.State,
		"postal_code": addr.PostalCode,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func snapshotFor(product *models.Product, variantID *uuid.UUID) models.ProductSnapshot {
	snap := models.ProductSnapshot{
		Name:         product.Name,
		Slug:         product.Slug,
		Description:  product.Description,
		Images:       append([]string{}, product.Images...),
		CategoryName: product.CategoryName(),
	}
	if variantID != nil {
		if variant, ok := product.FindVariant(*variantID); ok {
			snap.VariantName = variant.Name
		}
	}
	return snap
}
