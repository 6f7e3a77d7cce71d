package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/internal/cart"
	"github.com/angelmondragon/shopflow-backend/internal/orders"
	"github.com/angelmondragon/shopflow-backend/internal/products"
	"github.com/angelmondragon/shopflow-backend/pkg/db"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopflow-backend/pkg/types"
)

const (
	defaultOrderNumberRetries = 5
	orderNumberSavepoint      = "order_number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error
	Available(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (int, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier delivers the order confirmation after commit.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
}

type orderNumberSource interface {
	Next() (string, error)
}

type checkoutRecorder interface {
	IncOrderPlaced()
	IncFailure(code string)
}

// Input captures what the buyer supplies; everything monetary is computed here.
type Input struct {
	UserID          uuid.UUID
	ShippingAddress types.ShippingAddress
	PaymentMethod   enums.PaymentMethod
	Notes           *string
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, input Input) (*models.Order, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx           txRunner
	Carts        cart.CartRepository
	Orders       orders.Repository
	Products     productLoader
	Inventory    stockReserver
	Outbox       outboxPublisher
	Notifier     Notifier
	Pricing      Pricing
	OrderNumbers orderNumberSource
	Metrics      checkoutRecorder
	Logger       *logger.Logger
	// OrderNumberRetries bounds regeneration after an order number collision.
	OrderNumberRetries int
}

type service struct {
	tx        txRunner
	carts     cart.CartRepository
	orders    orders.Repository
	products  productLoader
	inventory stockReserver
	outbox    outboxPublisher
	notifier  Notifier
	pricing   Pricing
	numbers   orderNumberSource
	metrics   checkoutRecorder
	logg      *logger.Logger
	retries   int
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	numbers := deps.OrderNumbers
	if numbers == nil {
		numbers = NewOrderNumbers()
	}
	retries := deps.OrderNumberRetries
	if retries <= 0 {
		retries = defaultOrderNumberRetries
	}
	return &service{
		tx:        deps.Tx,
		carts:     deps.Carts,
		orders:    deps.Orders,
		products:  deps.Products,
		inventory: deps.Inventory,
		outbox:    deps.Outbox,
		notifier:  deps.Notifier,
		pricing:   deps.Pricing,
		numbers:   numbers,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		retries:   retries,
		now:       time.Now,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*models.Order, error) {
	order, err := s.execute(ctx, input)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(string(pkgerrors.CodeOf(err)))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncOrderPlaced()
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"user_id":      order.UserID.String(),
			"total":        order.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "order placed")
	}
	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, order); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "order confirmation failed")
		}
	}
	return order, nil
}

func (s *service) execute(ctx context.Context, input Input) (*models.Order, error) {
	input, err := ValidateInput(input)
	if err != nil {
		return nil, err
	}

	record, err := s.carts.FindByOwner(ctx, enums.CartOwnerUser, input.UserID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindCart, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	catalog, err := s.products.FindProductsByIDs(ctx, cart.ProductIDs(record))
	if err != nil {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindProduct, "load cart products")
	}
	if err := ValidateLines(record, catalog); err != nil {
		return nil, err
	}

	cart.CalculateTotals(record)
	quote := s.pricing.Quote(record.TotalAmount)
	order := s.buildOrder(input, record, catalog, quote)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.createOrder(ctx, tx, order); err != nil {
			return err
		}
		for _, line := range order.Items {
			if err := s.reserve(ctx, tx, line); err != nil {
				return err
			}
		}

		cart.Clear(record)
		if err := s.carts.WithTx(tx).SaveVersioned(ctx, record); err != nil {
			if errors.Is(err, cart.ErrVersionConflict) {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, retry the request")
			}
			return pkgerrors.FromStorage(err, pkgerrors.KindCart, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.CustomerActor(input.UserID),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				TotalAmount:   order.TotalAmount,
				PaymentMethod: order.PaymentMethod,
				Lines:         orders.OrderLines(order),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created event")
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindOrder, "checkout")
	}
	return order, nil
}

func (s *service) buildOrder(input Input, record *models.Cart, catalog map[uuid.UUID]*models.Product, quote Quote) *models.Order {
	now := s.now().UTC()
	items := make([]models.OrderItem, 0, len(record.Items))
	for _, line := range record.Items {
		items = append(items, models.OrderItem{
			ProductID:       line.ProductID,
			VariantID:       line.VariantID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       line.LineTotal,
			ProductSnapshot: snapshotFor(catalog[line.ProductID], line.VariantID),
			CreatedAt:       now,
		})
	}
	return &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Subtotal:        quote.Subtotal,
		TaxAmount:       quote.Tax,
		ShippingAmount:  quote.Shipping,
		DiscountAmount:  quote.Discount,
		TotalAmount:     quote.Total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// createOrder inserts the order under a savepoint so an order number
// collision can be retried without aborting the surrounding transaction.
func (s *service) createOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.orders.WithTx(tx)
	for attempt := 0; attempt < s.retries; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number

		if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
			return err
		}
		err = repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "order_number") {
			return err
		}
		if rbErr := tx.RollbackTo(orderNumberSavepoint).Error; rbErr != nil {
			return rbErr
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "order number collision")
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) reserve(ctx context.Context, tx *gorm.DB, line models.OrderItem) error {
	err := s.inventory.Reserve(ctx, tx, line.ProductID, line.VariantID, line.Quantity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, products.ErrStockUnavailable) {
		return pkgerrors.FromStorage(err, pkgerrors.KindProduct, "reserve stock")
	}
	available, readErr := s.inventory.Available(ctx, tx, line.ProductID, line.VariantID)
	if readErr != nil {
		return pkgerrors.FromStorage(readErr, pkgerrors.KindProduct, "read stock")
	}
	return pkgerrors.InsufficientStock(line.ProductID, line.VariantID, available, line.Quantity)
}
