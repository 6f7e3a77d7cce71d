package orders

import (
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusPaid:    {enums.PaymentStatusRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether a payment status change is allowed.
func CanTransitionPayment(from, to enums.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.InvalidTransition(string(from), string(to))
	}
	return nil
}

func checkPaymentTransition(from, to enums.PaymentStatus) error {
	if !CanTransitionPayment(from, to) {
		return pkgerrors.InvalidTransition(string(from), string(to))
	}
	return nil
}

// refundable orders are paid and not yet delivered. Refunding a cancelled
// order only flips the payment status.
func checkRefund(status enums.OrderStatus, payment enums.PaymentStatus) error {
	if err := checkPaymentTransition(payment, enums.PaymentStatusRefunded); err != nil {
		return err
	}
	if status == enums.OrderStatusDelivered {
		return pkgerrors.InvalidTransition(string(status), string(enums.OrderStatusCancelled))
	}
	return nil
}
