package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// ProductDTO is the wire shape of a show product.
type ProductDTO struct {
	ID           uuid.UUID           `json:"id"`
	ShopID       uuid.UUID           `json:"shop_id"`
	ShowID       *uuid.UUID          `json:"show_id,omitempty"`
	Name         string              `json:"name"`
	Description  *string             `json:"description,omitempty"`
	Tags         []string            `json:"tags"`
	PriceCents   int                 `json:"price_cents"`
	Quantity     int                 `json:"quantity"`
	QuantitySold int                 `json:"quantity_sold"`
	Status       enums.ProductStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

// FromModel maps a persisted product into its wire shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:           p.ID,
		ShopID:       p.ShopID,
		ShowID:       p.ShowID,
		Name:         p.Name,
		Description:  p.Description,
		Tags:         []string(p.Tags),
		PriceCents:   p.PriceCents,
		Quantity:     p.Quantity,
		QuantitySold: p.QuantitySold,
		Status:       p.Status,
		CreatedAt:    p.CreatedAt,
	}
}

// FromModels maps a product listing into wire shapes.
func FromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
