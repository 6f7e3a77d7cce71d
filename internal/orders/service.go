package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/internal/payments"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopflow-backend/pkg/pagination"
)

// Service defines order reads and post-checkout lifecycle operations.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	UpdateNotes(ctx context.Context, userID, orderID uuid.UUID, notes string) (*models.Order, error)
	ProcessPayment(ctx context.Context, input PaymentInput) (*models.Order, error)
	ProcessCryptoPayment(ctx context.Context, input PaymentInput) (*models.Order, error)
	Refund(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	AdvanceStatus(ctx context.Context, input AdvanceInput) (*models.Order, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryRestocker
	gateway   PaymentGateway
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the order service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, inventory InventoryRestocker, gateway PaymentGateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repo required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory restocker required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		inventory: inventory,
		gateway:   gateway,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.loadOwned(ctx, s.repo, userID, orderID)
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, input.UserID, cursor, pagination.LimitWithBuffer(input.Params.Limit))
	if err != nil {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindOrder, "list orders")
	}
	page, next := pagination.Window(rows, input.Params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &ListResult{Orders: page, NextCursor: next}, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOwned(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		now := s.now().UTC()
		err = repo.UpdateGuarded(ctx, order.ID, Guard{Status: order.Status}, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return s.guardError(err, "cancel order")
		}
		if err := s.restock(ctx, tx, order); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.CustomerActor(userID),
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				PreviousState: order.Status,
				CancelledAt:   now,
				RestockedLine: OrderLines(order),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order cancelled event")
		}

		result, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, result, "order cancelled")
	return result, nil
}

func (s *service) UpdateNotes(ctx context.Context, userID, orderID uuid.UUID, notes string) (*models.Order, error) {
	trimmed := strings.TrimSpace(notes)
	if len(trimmed) > maxNotesLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}
	var value any
	if trimmed != "" {
		value = trimmed
	}

	order, err := s.loadOwned(ctx, s.repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGuarded(ctx, order.ID, Guard{}, map[string]any{"notes": value}); err != nil {
		return nil, s.guardError(err, "update order notes")
	}
	return s.load(ctx, s.repo, order.ID)
}

func (s *service) ProcessPayment(ctx context.Context, input PaymentInput) (*models.Order, error) {
	return s.pay(ctx, input, false)
}

func (s *service) ProcessCryptoPayment(ctx context.Context, input PaymentInput) (*models.Order, error) {
	return s.pay(ctx, input, true)
}

// pay charges the gateway, then records the outcome. A declined charge still
// commits the failed state before PAYMENT_FAILED is returned.
func (s *service) pay(ctx context.Context, input PaymentInput, crypto bool) (*models.Order, error) {
	order, err := s.loadOwned(ctx, s.repo, input.UserID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentTransition(order.PaymentStatus, enums.PaymentStatusPaid); err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.InvalidTransition(string(order.Status), string(enums.OrderStatusProcessing))
	}

	method := order.PaymentMethod
	if crypto {
		method = enums.PaymentMethodCrypto
	} else if method == enums.PaymentMethodCrypto {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was placed with crypto, use the crypto payment endpoint")
	}

	charge, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Method:      method,
		ExternalRef: input.ExternalRef,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	now := s.now().UTC()
	guard := Guard{Status: order.Status, PaymentStatus: enums.PaymentStatusPending}
	updates := map[string]any{"payment_method": method}
	eventType := enums.EventOrderPaymentFailed
	paymentStatus := enums.PaymentStatusFailed
	var paymentID *string
	if charge.Approved {
		eventType = enums.EventOrderPaid
		paymentStatus = enums.PaymentStatusPaid
		id := charge.PaymentID
		paymentID = &id
		updates["payment_id"] = id
		updates["paid_at"] = now
		if order.Status == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusProcessing
		}
	}
	updates["payment_status"] = paymentStatus

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateGuarded(ctx, order.ID, guard, updates); err != nil {
			return s.guardError(err, "record payment")
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.CustomerActor(input.UserID),
			Data: payloads.OrderPaymentEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				PaymentStatus: paymentStatus,
				PaymentMethod: method,
				PaymentID:     paymentID,
				Amount:        order.TotalAmount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
		}
		var reloadErr error
		result, reloadErr = s.load(ctx, repo, order.ID)
		return reloadErr
	})
	if err != nil {
		if charge.Approved {
			s.logOrphanedCharge(ctx, order, charge.PaymentID, err)
		}
		return nil, err
	}

	if !charge.Approved {
		s.logTransition(ctx, result, "order payment declined")
		return result, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment was declined").
			WithDetails(map[string]string{"order_id": order.ID.String(), "reason": charge.DeclineReason})
	}
	s.logTransition(ctx, result, "order paid")
	return result, nil
}

func (s *service) Refund(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := checkRefund(order.Status, order.PaymentStatus); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{"payment_status": enums.PaymentStatusRefunded}
		alreadyCancelled := order.Status == enums.OrderStatusCancelled
		if !alreadyCancelled {
			updates["status"] = enums.OrderStatusCancelled
			updates["cancelled_at"] = now
		}
		guard := Guard{Status: order.Status, PaymentStatus: enums.PaymentStatusPaid}
		if err := repo.UpdateGuarded(ctx, order.ID, guard, updates); err != nil {
			return s.guardError(err, "refund order")
		}
		if !alreadyCancelled {
			if err := s.restock(ctx, tx, order); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.AdminActor(actorID),
			Data: payloads.OrderRefundedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Amount:      order.TotalAmount,
				RefundedAt:  now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit refund event")
		}
		result, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, result, "order refunded")
	return result, nil
}

func (s *service) AdvanceStatus(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if input.Target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use cancel or refund to cancel an order")
	}
	var tracking *string
	if input.TrackingNumber != nil {
		if trimmed := strings.TrimSpace(*input.TrackingNumber); trimmed != "" {
			tracking = &trimmed
		}
	}
	if input.Target == enums.OrderStatusShipped && tracking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required to ship an order")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := checkTransition(order.Status, input.Target); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Target}
		if tracking != nil {
			updates["tracking_number"] = *tracking
		}
		if err := repo.UpdateGuarded(ctx, order.ID, Guard{Status: order.Status}, updates); err != nil {
			return s.guardError(err, "advance order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.AdminActor(input.ActorID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				From:           order.Status,
				To:             input.Target,
				TrackingNumber: tracking,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change event")
		}
		result, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, result, "order status advanced")
	return result, nil
}

func (s *service) restock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, line := range order.Items {
		if err := s.inventory.Restock(ctx, tx, line.ProductID, line.VariantID, line.Quantity); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// the listing was removed from the catalog; nothing to return stock to
				continue
			}
			return pkgerrors.FromStorage(err, pkgerrors.KindProduct, "restore stock")
		}
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(pkgerrors.KindOrder, orderID, "order not found")
		}
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindOrder, "load order")
	}
	return order, nil
}

// loadOwned hides other users' orders behind NOT_FOUND.
func (s *service) loadOwned(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.NotFound(pkgerrors.KindOrder, orderID, "order not found")
	}
	return order, nil
}

func (s *service) guardError(err error, msg string) error {
	if errors.Is(err, ErrStaleOrder) {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, retry the request")
	}
	return pkgerrors.FromStorage(err, pkgerrors.KindOrder, msg)
}

func (s *service) logTransition(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
	s.logg.Info(logCtx, msg)
}

// logOrphanedCharge records an approved charge whose order write lost a race
// (usually a concurrent cancel). The charge is not reversed automatically.
func (s *service) logOrphanedCharge(ctx context.Context, order *models.Order, paymentID string, cause error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"payment_id":   paymentID,
		"amount":       order.TotalAmount.String(),
	})
	s.logg.Error(logCtx, "approved charge not recorded on order", cause)
}

// OrderLines summarizes order items for event payloads.
func OrderLines(order *models.Order) []payloads.OrderLine {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}
