package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/internal/cart"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/types"
)

type cartItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

type cartResponse struct {
	ID          uuid.UUID          `json:"id"`
	OwnerKind   string             `json:"owner_kind"`
	Items       []cartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	ItemCount   int                `json:"item_count"`
	Version     int64              `json:"version"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func newCartResponse(record *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			AddedAt:   item.AddedAt,
		})
	}
	return cartResponse{
		ID:          record.ID,
		OwnerKind:   record.OwnerKind.String(),
		Items:       items,
		TotalAmount: record.TotalAmount,
		ItemCount:   record.ItemCount,
		Version:     record.Version,
		ExpiresAt:   record.ExpiresAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

type skippedLineResponse struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Reason    string     `json:"reason"`
}

type mergeResponse struct {
	Cart    cartResponse          `json:"cart"`
	Merged  int                   `json:"merged"`
	Skipped []skippedLineResponse `json:"skipped"`
}

func newMergeResponse(result *cart.MergeResult) mergeResponse {
	skipped := make([]skippedLineResponse, 0, len(result.Skipped))
	for _, line := range result.Skipped {
		skipped = append(skipped, skippedLineResponse{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Reason:    string(line.Reason),
		})
	}
	return mergeResponse{
		Cart:    newCartResponse(result.Cart),
		Merged:  result.Merged,
		Skipped: skipped,
	}
}

type orderItemResponse struct {
	ProductID       uuid.UUID              `json:"product_id"`
	VariantID       *uuid.UUID             `json:"variant_id,omitempty"`
	Quantity        int                    `json:"quantity"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	LineTotal       decimal.Decimal        `json:"line_total"`
	ProductSnapshot models.ProductSnapshot `json:"product_snapshot"`
}

type orderResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	Items           []orderItemResponse   `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	TaxAmount       decimal.Decimal       `json:"tax_amount"`
	ShippingAmount  decimal.Decimal       `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal       `json:"discount_amount"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	PaymentMethod   string                `json:"payment_method"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PaymentID       *string               `json:"payment_id,omitempty"`
	TrackingNumber  *string               `json:"tracking_number,omitempty"`
	Notes           *string               `json:"notes,omitempty"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineTotal:       item.LineTotal,
			ProductSnapshot: item.ProductSnapshot,
		})
	}
	return orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Items:           items,
		Subtotal:        order.Subtotal,
		TaxAmount:       order.TaxAmount,
		ShippingAmount:  order.ShippingAmount,
		DiscountAmount:  order.DiscountAmount,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   string(order.PaymentMethod),
		ShippingAddress: order.ShippingAddress,
		PaymentID:       order.PaymentID,
		TrackingNumber:  order.TrackingNumber,
		Notes:           order.Notes,
		PaidAt:          order.PaidAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      *string    `json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newNotificationResponse(n models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		OrderID:   n.OrderID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
