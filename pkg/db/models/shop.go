package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is the seller entity. Payment intent metadata carries both the
// shop id (seller_entity_id) and the owner's user id (seller_user_id).
type Shop struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID     uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null"`
	Name            string    `gorm:"column:name;not null"`
	Slug            string    `gorm:"column:slug;not null;uniqueIndex"`
	StripeAccountID *string   `gorm:"column:stripe_account_id"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
