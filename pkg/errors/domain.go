package errors

import (
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource kinds reported in NOT_FOUND details.
const (
	KindProduct  = "product"
	KindVariant  = "variant"
	KindCart     = "cart"
	KindCartItem = "cart_item"
	KindOrder    = "order"
)

type NotFoundDetails struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

type StockDetails struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Available int     `json:"available"`
	Requested int     `json:"requested"`
}

type ProductDetails struct {
	ProductID string `json:"product_id"`
}

type TransitionDetails struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func NotFound(kind string, id uuid.UUID, message string) *Error {
	details := NotFoundDetails{Kind: kind}
	if id != uuid.Nil {
		details.ID = id.String()
	}
	return New(CodeNotFound, message).WithDetails(details)
}

func VariantNotFound(productID, variantID uuid.UUID) *Error {
	return NotFound(KindVariant, variantID, "variant not found for product "+productID.String())
}

func ItemNotFound(productID uuid.UUID) *Error {
	return NotFound(KindCartItem, productID, "cart item not found")
}

func InsufficientStock(productID uuid.UUID, variantID *uuid.UUID, available, requested int) *Error {
	details := StockDetails{
		ProductID: productID.String(),
		Available: available,
		Requested: requested,
	}
	if variantID != nil {
		v := variantID.String()
		details.VariantID = &v
	}
	return New(CodeInsufficientStock, "insufficient stock for product "+productID.String()).WithDetails(details)
}

func ProductUnavailable(productID uuid.UUID) *Error {
	return New(CodeProductUnavailable, "product "+productID.String()+" is no longer available").
		WithDetails(ProductDetails{ProductID: productID.String()})
}

func InvalidTransition(from, to string) *Error {
	return New(CodeInvalidStateTransition, "cannot transition from "+from+" to "+to).
		WithDetails(TransitionDetails{From: from, To: to})
}

// FromStorage classifies a persistence error. Missing rows become NOT_FOUND
// for the given kind, typed errors pass through untouched, everything else is
// a STORAGE_FAULT.
func FromStorage(err error, kind, message string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(kind, uuid.Nil, kind+" not found")
	}
	return Wrap(CodeStorage, err, message)
}
