package enums

// OutboxAggregateType is stored in outbox_events.aggregate_type and selects
// the broker partition key.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateNotification}

func (a OutboxAggregateType) IsValid() bool { return member(a, aggregateTypes) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse("aggregate type", raw, aggregateTypes)
}

// OutboxEventType names a domain event. Values are dotted
// "<aggregate>.<verb>" strings.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order.created"
	EventOrderCancelled        OutboxEventType = "order.cancelled"
	EventOrderPaid             OutboxEventType = "order.paid"
	EventOrderPaymentFailed    OutboxEventType = "order.payment_failed"
	EventOrderRefunded         OutboxEventType = "order.refunded"
	EventOrderStatusChanged    OutboxEventType = "order.status_changed"
	EventNotificationRequested OutboxEventType = "notification.requested"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventOrderRefunded,
	EventOrderStatusChanged,
	EventNotificationRequested,
}

func (e OutboxEventType) String() string { return string(e) }
func (e OutboxEventType) IsValid() bool  { return member(e, outboxEventTypes) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, outboxEventTypes)
}

// OutboxDLQErrorReason records why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

var dlqReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonUnknownEvent,
}

func (r OutboxDLQErrorReason) IsValid() bool { return member(r, dlqReasons) }
