package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Batch groups one buyer's paid orders within a shop+show session for
// in-person pickup. A partial unique index keeps at most one
// non-terminal batch per (buyer, shop, show) triple.
type Batch struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	ShopID      uuid.UUID         `gorm:"column:shop_id;type:uuid;not null"`
	ShowID      uuid.UUID         `gorm:"column:show_id;type:uuid;not null"`
	Status      enums.BatchStatus `gorm:"column:status;type:batch_status;not null;default:'active'"`
	TotalItems  int               `gorm:"column:total_items;not null;default:0"`
	TotalCents  int               `gorm:"column:total_cents;not null;default:0"`
	ReadyAt     *time.Time        `gorm:"column:ready_at"`
	CompletedAt *time.Time        `gorm:"column:completed_at"`
	Orders      []Order           `gorm:"foreignKey:BatchID"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
