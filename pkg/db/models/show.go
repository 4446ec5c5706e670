package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Show is a live selling session hosted by one shop. Orders and pickup
// batches are always scoped to a show.
type Show struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID      uuid.UUID        `gorm:"column:shop_id;type:uuid;not null"`
	Title       string           `gorm:"column:title;not null"`
	Status      enums.ShowStatus `gorm:"column:status;type:show_status;not null;default:'scheduled'"`
	ScheduledAt *time.Time       `gorm:"column:scheduled_at"`
	StartedAt   *time.Time       `gorm:"column:started_at"`
	EndedAt     *time.Time       `gorm:"column:ended_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
