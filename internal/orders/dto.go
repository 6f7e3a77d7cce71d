package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/pagination"
)

const maxNotesLength = 1000

// ListResult is one page of a user's orders.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// PaymentInput drives ProcessPayment and ProcessCryptoPayment.
type PaymentInput struct {
	UserID      uuid.UUID
	OrderID     uuid.UUID
	ExternalRef *string
}

// AdvanceInput moves an order forward through fulfilment.
type AdvanceInput struct {
	ActorID        uuid.UUID
	OrderID        uuid.UUID
	Target         enums.OrderStatus
	TrackingNumber *string
}

// ListInput selects a page of a user's orders.
type ListInput struct {
	UserID uuid.UUID
	Params pagination.Params
}
