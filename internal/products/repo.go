package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Repository defines persistence operations for product rows. Stock
// mutations are guarded single statements in the reservation style; the
// shop id rides in every predicate so a seller can only touch their own
// shelf.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByShow(ctx context.Context, showID uuid.UUID) ([]models.Product, error)
	Restock(ctx context.Context, productID, shopID uuid.UUID, qty int) (bool, error)
	Deactivate(ctx context.Context, productID, shopID uuid.UUID) (bool, error)
	Activate(ctx context.Context, productID, shopID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByShow returns the show's shelf. Deactivated products are pulled
// from the listing; sold_out ones stay visible so the overlay can flip
// their card.
func (r *repository) ListByShow(ctx context.Context, showID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("show_id = ? AND status <> ?", showID, enums.ProductStatusInactive).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Restock adds stock and revives a sold_out product in one statement.
// A deactivated product keeps its status; only the count changes.
func (r *repository) Restock(ctx context.Context, productID, shopID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity = quantity + ?,
			status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?
	`, qty, productID, shopID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Deactivate(ctx context.Context, productID, shopID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET status = 'inactive',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?
	`, productID, shopID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Activate recomputes the sellable status from remaining stock, so a
// product deactivated at zero quantity comes back as sold_out, not
// as a buyable ghost.
func (r *repository) Activate(ctx context.Context, productID, shopID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET status = CASE WHEN quantity = 0 THEN 'sold_out' ELSE 'active' END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?
	`, productID, shopID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
