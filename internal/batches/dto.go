package batches

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// BatchList wraps the paginated batches plus the next page cursor.
type BatchList struct {
	Batches    []models.Batch `json:"batches"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Viewer identifies the caller on reads and seller actions. ShopID is
// set only for sellers acting for their shop.
type Viewer struct {
	UserID uuid.UUID
	ShopID *uuid.UUID
	Role   enums.UserRole
}

// BatchDTO is the wire shape of a pickup batch. Orders are included
// only on detail reads, where the repository preloads them.
type BatchDTO struct {
	ID          uuid.UUID         `json:"id"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	ShopID      uuid.UUID         `json:"shop_id"`
	ShowID      uuid.UUID         `json:"show_id"`
	Status      enums.BatchStatus `json:"status"`
	TotalItems  int               `json:"total_items"`
	TotalCents  int               `json:"total_cents"`
	ReadyAt     *time.Time        `json:"ready_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Orders      []orders.OrderDTO `json:"orders,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// FromModel maps a persisted batch into its wire shape.
func FromModel(b *models.Batch) *BatchDTO {
	if b == nil {
		return nil
	}
	dto := &BatchDTO{
		ID:          b.ID,
		BuyerID:     b.BuyerID,
		ShopID:      b.ShopID,
		ShowID:      b.ShowID,
		Status:      b.Status,
		TotalItems:  b.TotalItems,
		TotalCents:  b.TotalCents,
		ReadyAt:     b.ReadyAt,
		CompletedAt: b.CompletedAt,
		CreatedAt:   b.CreatedAt,
	}
	if len(b.Orders) > 0 {
		dto.Orders = orders.FromModels(b.Orders)
	}
	return dto
}

// FromModels maps a page of batches into wire shapes.
func FromModels(rows []models.Batch) []BatchDTO {
	out := make([]BatchDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
