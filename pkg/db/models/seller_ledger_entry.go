package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// SellerLedgerEntry is the append-only money trail for a shop: one sale
// entry per paid order, one refund entry per refunded order, one payout
// entry per completed batch.
type SellerLedgerEntry struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID     uuid.UUID             `gorm:"column:shop_id;type:uuid;not null"`
	OrderID    *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	BatchID    *uuid.UUID            `gorm:"column:batch_id;type:uuid"`
	EntryType  enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type;not null"`
	GrossCents int                   `gorm:"column:gross_cents;not null"`
	FeeCents   int                   `gorm:"column:fee_cents;not null;default:0"`
	NetCents   int                   `gorm:"column:net_cents;not null"`
	Metadata   json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
