package enums

// OutboxAggregateType identifies the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateVendor  OutboxAggregateType = "vendor"
	AggregateProduct OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateVendor,
	AggregateProduct,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order.created"
	EventOrderCancelled       OutboxEventType = "order.cancelled"
	EventOrderExpired         OutboxEventType = "order.expired"
	EventOrderStatusChanged   OutboxEventType = "order.status_changed"
	EventPaymentInitialized   OutboxEventType = "payment.initialized"
	EventPaymentCompleted     OutboxEventType = "payment.completed"
	EventPaymentFailed        OutboxEventType = "payment.failed"
	EventPaymentRefundDue     OutboxEventType = "payment.requires_refund"
	EventVendorApplied        OutboxEventType = "vendor.applied"
	EventVendorStatusChanged  OutboxEventType = "vendor.status_changed"
	EventProductStatusChanged OutboxEventType = "product.status_changed"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderExpired,
	EventOrderStatusChanged,
	EventPaymentInitialized,
	EventPaymentCompleted,
	EventPaymentFailed,
	EventPaymentRefundDue,
	EventVendorApplied,
	EventVendorStatusChanged,
	EventProductStatusChanged,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return contains(validEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validEventTypes, value, "event type")
}
