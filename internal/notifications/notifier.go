package notifications

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier stores order notifications in the inbox and queues a
// notification.requested event for outbound channels.
type Notifier struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	now    func() time.Time
}

func NewNotifier(repo Repository, tx txRunner, emitter outbox.Emitter) (*Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Notifier{repo: repo, tx: tx, outbox: emitter, now: time.Now}, nil
}

// OrderConfirmed records the confirmation for a freshly placed order.
func (n *Notifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	link := "/orders/" + order.ID.String()
	orderID := order.ID
	record := &models.Notification{
		UserID:    order.UserID,
		OrderID:   &orderID,
		Type:      enums.NotificationTypeOrderConfirmed,
		Title:     "Order " + order.OrderNumber + " confirmed",
		Message:   fmt.Sprintf("We received your order of %d item(s) totalling %s.", itemCount(order), order.TotalAmount.StringFixed(2)),
		Link:      &link,
		CreatedAt: n.now().UTC(),
	}

	return n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := n.repo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		return n.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   record.ID,
			Data: payloads.NotificationRequestedEvent{
				NotificationID: record.ID,
				UserID:         record.UserID,
				Type:           record.Type,
				Title:          record.Title,
				Message:        record.Message,
				Link:           record.Link,
			},
		})
	})
}

func itemCount(order *models.Order) int {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return total
}
