package enums

import "slices"

// OutboxAggregateType names the entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateUser  OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateUser,
}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType is the routing key for outbox rows and pubsub topics.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderShippingAssigned OutboxEventType = "order_shipping_assigned"
	EventOrderPaymentApplied   OutboxEventType = "order_payment_applied"
	EventUserRegistered        OutboxEventType = "user_registered"
	EventUserCreatedByAdmin    OutboxEventType = "user_created_by_admin"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderShippingAssigned,
	EventOrderPaymentApplied,
	EventUserRegistered,
	EventUserCreatedByAdmin,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, value, "event type")
}

// OutboxDLQErrorReason records why an event left the outbox without being published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

func (r OutboxDLQErrorReason) String() string { return string(r) }
