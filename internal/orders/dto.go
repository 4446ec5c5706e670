package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the buyer orders list.
type ListFilters struct {
	Status *enums.OrderStatus
	ShowID *uuid.UUID
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Viewer identifies the caller on reads and seller actions. ShopID is
// set only for sellers acting for their shop.
type Viewer struct {
	UserID uuid.UUID
	ShopID *uuid.UUID
	Role   enums.UserRole
}

// OrderDTO is the wire shape of an order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	BuyerID         uuid.UUID         `json:"buyer_id"`
	ShopID          uuid.UUID         `json:"shop_id"`
	ProductID       *uuid.UUID        `json:"product_id,omitempty"`
	ShowID          uuid.UUID         `json:"show_id"`
	Quantity        int               `json:"quantity"`
	UnitPriceCents  int               `json:"unit_price_cents"`
	TotalCents      int               `json:"total_cents"`
	Status          enums.OrderStatus `json:"status"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	BatchID         *uuid.UUID        `json:"batch_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// FromModel maps a persisted order into its wire shape.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		ShopID:          o.ShopID,
		ProductID:       o.ProductID,
		ShowID:          o.ShowID,
		Quantity:        o.Quantity,
		UnitPriceCents:  o.UnitPriceCents,
		TotalCents:      o.TotalCents,
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
		BatchID:         o.BatchID,
		CreatedAt:       o.CreatedAt,
	}
}

// FromModels maps a page of orders into wire shapes.
func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
