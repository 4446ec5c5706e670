package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Product is the inventory unit sold during a show. Quantity lives on
// the row itself: reservation and restoration mutate it with
// conditional updates, never with read-modify-write.
type Product struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID       uuid.UUID           `gorm:"column:shop_id;type:uuid;not null"`
	ShowID       *uuid.UUID          `gorm:"column:show_id;type:uuid"`
	Name         string              `gorm:"column:name;not null"`
	Description  *string             `gorm:"column:description"`
	Tags         pq.StringArray      `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	PriceCents   int                 `gorm:"column:price_cents;not null"`
	Quantity     int                 `gorm:"column:quantity;not null;default:0"`
	QuantitySold int                 `gorm:"column:quantity_sold;not null;default:0"`
	Status       enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'active'"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
