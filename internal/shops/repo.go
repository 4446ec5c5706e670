package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
)

// Repository handles shop persistence. Shops have no HTTP surface of
// their own; checkout, payments and login resolve them through these
// lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shop *models.Shop) (*models.Shop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	// FindByOwnerUser returns the seller's shop, or nil for plain buyers.
	FindByOwnerUser(ctx context.Context, ownerUserID uuid.UUID) (*models.Shop, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shop *models.Shop) (*models.Shop, error) {
	if err := r.db.WithContext(ctx).Create(shop).Error; err != nil {
		return nil, err
	}
	return shop, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindByOwnerUser(ctx context.Context, ownerUserID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		First(&shop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}
