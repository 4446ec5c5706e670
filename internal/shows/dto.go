package shows

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// ShowDTO is the wire shape of a live show.
type ShowDTO struct {
	ID          uuid.UUID        `json:"id"`
	ShopID      uuid.UUID        `json:"shop_id"`
	Title       string           `json:"title"`
	Status      enums.ShowStatus `json:"status"`
	ScheduledAt *time.Time       `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FromModel maps a persisted show into its wire shape.
func FromModel(s *models.Show) *ShowDTO {
	if s == nil {
		return nil
	}
	return &ShowDTO{
		ID:          s.ID,
		ShopID:      s.ShopID,
		Title:       s.Title,
		Status:      s.Status,
		ScheduledAt: s.ScheduledAt,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		CreatedAt:   s.CreatedAt,
	}
}
