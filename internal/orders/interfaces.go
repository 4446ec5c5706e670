package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
)

// Repository defines persistence operations for order rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindPendingClaim returns the open pending order for a
	// (buyer, product, show) triple, or nil when the buyer holds none.
	FindPendingClaim(ctx context.Context, buyerID, productID, showID uuid.UUID) (*models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
