package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Order is one buyer's claim on show inventory. PaymentIntentID is
// written only by the webhook reconciler on confirmed success, never at
// intent issuance.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null"`
	ShopID          uuid.UUID              `gorm:"column:shop_id;type:uuid;not null"`
	ProductID       *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	ShowID          uuid.UUID              `gorm:"column:show_id;type:uuid;not null"`
	BatchID         *uuid.UUID             `gorm:"column:batch_id;type:uuid"`
	Quantity        int                    `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents  int                    `gorm:"column:unit_price_cents;not null"`
	TotalCents      int                    `gorm:"column:total_cents;not null"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Platform        enums.CheckoutPlatform `gorm:"column:platform;type:checkout_platform;not null;default:'web'"`
	PaymentIntentID *string                `gorm:"column:payment_intent_id"`
	CancelReason    *enums.CancelReason    `gorm:"column:cancel_reason;type:cancel_reason"`
	// ReconciliationFlagged marks orders whose payment confirmation arrived
	// after the order already left pending. Support resolves these by hand.
	ReconciliationFlagged bool       `gorm:"column:payment_reconciliation_flagged;not null;default:false"`
	PaidAt                *time.Time `gorm:"column:paid_at"`
	CanceledAt            *time.Time `gorm:"column:canceled_at"`
	Product               *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
