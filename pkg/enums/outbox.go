package enums

// OutboxEventType enumerates the domain events emitted through the
// transactional outbox and fanned out to recipient rooms.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order.created"
	EventOrderStatusChanged     OutboxEventType = "order.status_changed"
	EventPaymentStatusChanged   OutboxEventType = "payment.status_changed"
	EventCommissionMaterialized OutboxEventType = "commission.materialized"
	EventCourierLocation        OutboxEventType = "courier.location"
)

// String implements fmt.Stringer.
func (t OutboxEventType) String() string {
	return string(t)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateCommission OutboxAggregateType = "commission"
)

// String implements fmt.Stringer.
func (t OutboxAggregateType) String() string {
	return string(t)
}
