package shows

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

// Repository defines persistence operations for show rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, show *models.Show) (*models.Show, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error)
	// Transition flips the status only when the row still holds the
	// expected one; the bool reports whether a row changed.
	Transition(ctx context.Context, showID uuid.UUID, from, to enums.ShowStatus, set map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shows repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, show *models.Show) (*models.Show, error) {
	if err := r.db.WithContext(ctx).Create(show).Error; err != nil {
		return nil, err
	}
	return show, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	var show models.Show
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&show).Error
	if err != nil {
		return nil, err
	}
	return &show, nil
}

func (r *repository) Transition(ctx context.Context, showID uuid.UUID, from, to enums.ShowStatus, set map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for column, value := range set {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Show{}).
		Where("id = ? AND status = ?", showID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
