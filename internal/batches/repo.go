package batches

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
)

// Repository defines persistence operations for batch rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.Batch) (*models.Batch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	// FindOpenTriple returns the non-terminal batch for a
	// (buyer, shop, show) triple, or nil when none is open.
	FindOpenTriple(ctx context.Context, buyerID, shopID, showID uuid.UUID) (*models.Batch, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*BatchList, error)
	Update(ctx context.Context, batchID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a batches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindOpenTriple(ctx context.Context, buyerID, shopID, showID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND shop_id = ? AND show_id = ? AND status IN ?",
			buyerID, shopID, showID,
			[]enums.BatchStatus{enums.BatchStatusActive, enums.BatchStatusReady}).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*BatchList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID)
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Batch
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	trimmed, next := pagination.NextCursorFrom(rows, params.Limit, func(b models.Batch) (time.Time, uuid.UUID) {
		return b.CreatedAt, b.ID
	})
	return &BatchList{Batches: trimmed, NextCursor: next}, nil
}

func (r *repository) Update(ctx context.Context, batchID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", batchID).
		Updates(updates).Error
}
