package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/internal/payments"
	"github.com/angelmondragon/shopflow-backend/internal/products"
	"github.com/angelmondragon/shopflow-backend/pkg/db"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/types"
)

type stubGateway struct {
	approve      bool
	err          error
	calls        []payments.ChargeRequest
	beforeCharge func()
}

func (g *stubGateway) Charge(_ context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	g.calls = append(g.calls, req)
	if g.beforeCharge != nil {
		g.beforeCharge()
	}
	if g.err != nil {
		return payments.ChargeResult{}, g.err
	}
	if !g.approve {
		return payments.ChargeResult{DeclineReason: "declined by issuer"}, nil
	}
	return payments.ChargeResult{Approved: true, PaymentID: "pay_test"}, nil
}

type orderOption func(*models.Order)

func withStatus(status enums.OrderStatus, payment enums.PaymentStatus) orderOption {
	return func(o *models.Order) {
		o.Status = status
		o.PaymentStatus = payment
	}
}

func withMethod(method enums.PaymentMethod) orderOption {
	return func(o *models.Order) { o.PaymentMethod = method }
}

func createdAt(t time.Time) orderOption {
	return func(o *models.Order) { o.CreatedAt = t }
}

// seedOrder stores an order with one line of qty units of product.
func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, product *models.Product, qty int, opts ...orderOption) *models.Order {
	t.Helper()
	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	order := &models.Order{
		OrderNumber:     "ORD-TEST-" + uuid.NewString()[:8],
		UserID:          userID,
		Subtotal:        total,
		TaxAmount:       decimal.Zero,
		ShippingAmount:  decimal.Zero,
		DiscountAmount:  decimal.Zero,
		TotalAmount:     total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodCard,
		ShippingAddress: types.ShippingAddress{FullName: "Ada", Line1: "1 Main", City: "X", State: "IL", PostalCode: "1", Country: "US"},
		CreatedAt:       time.Now().UTC(),
		Items: []models.OrderItem{{
			ProductID:       product.ID,
			Quantity:        qty,
			UnitPrice:       product.Price,
			LineTotal:       total,
			ProductSnapshot: models.ProductSnapshot{Name: product.Name, Slug: product.Slug},
		}},
	}
	for _, opt := range opts {
		opt(order)
	}
	if err := NewRepository(conn).Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newTestService(t *testing.T, conn *gorm.DB, gateway PaymentGateway) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(conn),
		db.FromConn(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
		products.NewInventory(products.NewRepository(conn)),
		gateway,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func outboxEvents(t *testing.T, conn *gorm.DB) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	if err := conn.Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	return rows
}

func eventData(t *testing.T, row models.OutboxEvent, into any) {
	t.Helper()
	envelope, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := envelope.DecodeData(into); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
