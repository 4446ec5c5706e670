package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateBatch   OutboxAggregateType = "batch"
	AggregateProduct OutboxAggregateType = "product"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateBatch,
	AggregateProduct,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated                 OutboxEventType = "order_created"
	EventOrderPaid                    OutboxEventType = "order_paid"
	EventOrderCanceled                OutboxEventType = "order_canceled"
	EventOrderExpired                 OutboxEventType = "order_expired"
	EventOrderRefunded                OutboxEventType = "order_refunded"
	EventOrderCompleted               OutboxEventType = "order_completed"
	EventBatchCreated                 OutboxEventType = "batch_created"
	EventBatchReady                   OutboxEventType = "batch_ready"
	EventBatchCompleted               OutboxEventType = "batch_completed"
	EventBatchCanceled                OutboxEventType = "batch_canceled"
	EventProductSoldOut               OutboxEventType = "product_sold_out"
	EventPaymentReconciliationFlagged OutboxEventType = "payment_reconciliation_flagged"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderCanceled,
	EventOrderExpired,
	EventOrderRefunded,
	EventOrderCompleted,
	EventBatchCreated,
	EventBatchReady,
	EventBatchCompleted,
	EventBatchCanceled,
	EventProductSoldOut,
	EventPaymentReconciliationFlagged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
