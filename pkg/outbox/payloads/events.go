package payloads

import (
	"time"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a pending order with inventory held.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	ShopID     uuid.UUID `json:"shop_id"`
	ProductID  uuid.UUID `json:"product_id"`
	ShowID     uuid.UUID `json:"show_id"`
	Quantity   int       `json:"quantity"`
	TotalCents int       `json:"total_cents"`
}

// OrderPaidEvent is emitted when payment confirmation lands and the order
// joins its batch.
type OrderPaidEvent struct {
	OrderID         uuid.UUID  `json:"order_id"`
	BuyerID         uuid.UUID  `json:"buyer_id"`
	ShopID          uuid.UUID  `json:"shop_id"`
	BatchID         *uuid.UUID `json:"batch_id,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id"`
	AmountCents     int        `json:"amount_cents"`
	PaidAt          time.Time  `json:"paid_at"`
}

// OrderCanceledEvent is emitted whenever a pending order is released,
// by the buyer or by the expiry sweep.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	ShopID     uuid.UUID          `json:"shop_id"`
	ProductID  uuid.UUID          `json:"product_id"`
	Quantity   int                `json:"quantity"`
	Reason     enums.CancelReason `json:"reason"`
	CanceledAt time.Time          `json:"canceled_at"`
}

// OrderExpiredEvent describes the payload when the sweep releases an order.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OrderRefundedEvent surfaces a seller-issued refund on a paid order.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	AmountCents int       `json:"amount_cents"`
	RefundedAt  time.Time `json:"refunded_at"`
}

// OrderCompletedEvent marks an order fulfilled through its batch.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	BatchID     *uuid.UUID `json:"batch_id,omitempty"`
	CompletedAt time.Time  `json:"completed_at"`
}

// BatchCreatedEvent signals a new aggregation bucket for a buyer/shop/show triple.
type BatchCreatedEvent struct {
	BatchID uuid.UUID `json:"batch_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
	ShopID  uuid.UUID `json:"shop_id"`
	ShowID  uuid.UUID `json:"show_id"`
}

// BatchReadyEvent is emitted when the buyer finishes shopping a show.
type BatchReadyEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	ShopID     uuid.UUID `json:"shop_id"`
	TotalItems int       `json:"total_items"`
	TotalCents int       `json:"total_cents"`
}

// BatchCompletedEvent marks a batch fulfilled by the seller.
type BatchCompletedEvent struct {
	BatchID     uuid.UUID `json:"batch_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// BatchCanceledEvent is emitted when every order in a batch was refunded.
type BatchCanceledEvent struct {
	BatchID uuid.UUID `json:"batch_id"`
	ShopID  uuid.UUID `json:"shop_id"`
}

// ProductSoldOutEvent tells the show overlay to flip the product card.
type ProductSoldOutEvent struct {
	ProductID uuid.UUID  `json:"product_id"`
	ShopID    uuid.UUID  `json:"shop_id"`
	ShowID    *uuid.UUID `json:"show_id,omitempty"`
}

// PaymentReconciliationFlaggedEvent reports a webhook that confirmed payment
// for an order no longer in pending, or for an order id with no row at
// all (OrderStatus empty). Support works these by hand.
type PaymentReconciliationFlaggedEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	OrderStatus     enums.OrderStatus `json:"order_status,omitempty"`
	Reason          string            `json:"reason"`
}
