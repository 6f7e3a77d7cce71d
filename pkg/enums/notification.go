package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderConfirmed NotificationType = "order_confirmed"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
	NotificationTypeOrderShipped   NotificationType = "order_shipped"
	NotificationTypePaymentFailed  NotificationType = "payment_failed"
)

var notificationTypes = []NotificationType{
	NotificationTypeOrderConfirmed,
	NotificationTypeOrderCancelled,
	NotificationTypeOrderShipped,
	NotificationTypePaymentFailed,
}

func (n NotificationType) IsValid() bool { return member(n, notificationTypes) }

func ParseNotificationType(raw string) (NotificationType, error) {
	return parse("notification type", raw, notificationTypes)
}
