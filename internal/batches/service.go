package batches

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/pkg/db"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
)

const uxBatchesOpenTriple = "ux_batches_active_triple"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type payoutRecorder interface {
	RecordPayout(ctx context.Context, tx *gorm.DB, batch *models.Batch, orders []models.Order) error
}

// Service groups a buyer's paid orders per shop and show into pickup
// batches and walks them through their lifecycle. Attachment and refund
// handling run inside the caller's order transaction; ready/complete own
// their transactions.
type Service interface {
	AttachPaidOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Batch, error)
	HandleRefund(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) error
	MarkReady(ctx context.Context, buyerID, batchID uuid.UUID) error
	Complete(ctx context.Context, viewer Viewer, batchID uuid.UUID) error
	Get(ctx context.Context, viewer Viewer, batchID uuid.UUID) (*models.Batch, error)
	List(ctx context.Context, viewer Viewer, params pagination.Params) (*BatchList, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outboxPublisher
	ledger payoutRecorder
	now    func() time.Time
}

// NewService builds the batch service with the required collaborators.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outbox outboxPublisher, ledger payoutRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("payout recorder required")
	}
	return &service{
		repo:   repo,
		orders: ordersRepo,
		tx:     tx,
		outbox: outbox,
		ledger: ledger,
		now:    time.Now,
	}, nil
}

// AttachPaidOrder folds a freshly paid order into the open batch for its
// (buyer, shop, show) triple, creating the batch when none is open, and
// recomputes the running totals. Only paid orders ever attach.
func (s *service) AttachPaidOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Batch, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders join a batch")
	}

	repo := s.repo.WithTx(tx)
	batch, err := repo.FindOpenTriple(ctx, order.BuyerID, order.ShopID, order.ShowID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open batch")
	}
	if batch == nil {
		batch, err = s.createBatch(ctx, tx, repo, order)
		if err != nil {
			return nil, err
		}
	}

	ordersRepo := s.orders.WithTx(tx)
	if err := ordersRepo.Update(ctx, order.ID, map[string]any{"batch_id": batch.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach order to batch")
	}
	order.BatchID = &batch.ID

	if err := s.recomputeTotals(ctx, tx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// createBatch inserts the open batch for the order's triple. A concurrent
// payment can win the insert race; the partial unique index rejects the
// loser, which then reads the winner's row.
func (s *service) createBatch(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) (*models.Batch, error) {
	batch := &models.Batch{
		BuyerID: order.BuyerID,
		ShopID:  order.ShopID,
		ShowID:  order.ShowID,
		Status:  enums.BatchStatusActive,
	}
	created, err := repo.Create(ctx, batch)
	if err != nil {
		if db.IsUniqueViolation(err, uxBatchesOpenTriple) {
			existing, findErr := repo.FindOpenTriple(ctx, order.BuyerID, order.ShopID, order.ShowID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "find open batch after race")
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBatchCreated,
		AggregateType: enums.AggregateBatch,
		AggregateID:   created.ID,
		Version:       1,
		Data: payloads.BatchCreatedEvent{
			BatchID: created.ID,
			BuyerID: created.BuyerID,
			ShopID:  created.ShopID,
			ShowID:  created.ShowID,
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// HandleRefund recomputes the batch after one of its orders was refunded.
// Nothing detaches; when no countable order remains the batch cancels.
func (s *service) HandleRefund(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "batch id required")
	}
	repo := s.repo.WithTx(tx)
	batch, err := repo.FindByID(ctx, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeInternal, "batch missing for refunded order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}

	attached, err := s.orders.WithTx(tx).FindByBatch(ctx, batchID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch orders")
	}

	items, cents, countable := sumCountable(attached)
	if countable == 0 && batch.Status.CanTransitionTo(enums.BatchStatusCanceled) {
		updates := map[string]any{
			"status":      enums.BatchStatusCanceled,
			"total_items": 0,
			"total_cents": 0,
		}
		if err := repo.Update(ctx, batch.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel batch")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCanceled,
			AggregateType: enums.AggregateBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Data: payloads.BatchCanceledEvent{
				BatchID: batch.ID,
				ShopID:  batch.ShopID,
			},
		})
	}

	updates := map[string]any{"total_items": items, "total_cents": cents}
	if err := repo.Update(ctx, batch.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch totals")
	}
	return nil
}

// MarkReady is the buyer's checkout-complete signal for a show. Repeat
// calls on a ready batch are no-ops.
func (s *service) MarkReady(ctx context.Context, buyerID, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, err := repo.FindByID(ctx, batchID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}
		if batch.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "batch does not belong to buyer")
		}
		if batch.Status == enums.BatchStatusReady {
			return nil
		}
		if !batch.Status.CanTransitionTo(enums.BatchStatusReady) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active batches can be marked ready")
		}

		now := s.now()
		updates := map[string]any{
			"status":   enums.BatchStatusReady,
			"ready_at": now,
		}
		if err := repo.Update(ctx, batch.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark batch ready")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchReady,
			AggregateType: enums.AggregateBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
			Data: payloads.BatchReadyEvent{
				BatchID:    batch.ID,
				BuyerID:    batch.BuyerID,
				ShopID:     batch.ShopID,
				TotalItems: batch.TotalItems,
				TotalCents: batch.TotalCents,
			},
		})
	})
}

// Complete is the seller's pickup confirmation: the batch closes, its paid
// orders complete and the payout entry is booked, all in one transaction.
func (s *service) Complete(ctx context.Context, viewer Viewer, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if viewer.ShopID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, err := repo.FindByID(ctx, batchID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}
		if batch.ShopID != *viewer.ShopID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "batch does not belong to shop")
		}
		if batch.Status == enums.BatchStatusCompleted {
			return nil
		}
		if !batch.Status.CanTransitionTo(enums.BatchStatusCompleted) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only ready batches can be completed")
		}

		now := s.now()
		updates := map[string]any{
			"status":       enums.BatchStatusCompleted,
			"completed_at": now,
		}
		if err := repo.Update(ctx, batch.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete batch")
		}
		batch.Status = enums.BatchStatusCompleted
		batch.CompletedAt = &now

		ordersRepo := s.orders.WithTx(tx)
		attached, err := ordersRepo.FindByBatch(ctx, batchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch orders")
		}
		for i := range attached {
			if attached[i].Status != enums.OrderStatusPaid {
				continue
			}
			if err := ordersRepo.Update(ctx, attached[i].ID, map[string]any{"status": enums.OrderStatusCompleted}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
			}
			attached[i].Status = enums.OrderStatusCompleted
			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   attached[i].ID,
				Version:       1,
				Data: payloads.OrderCompletedEvent{
					OrderID:     attached[i].ID,
					BatchID:     &batch.ID,
					CompletedAt: now,
				},
			})
			if err != nil {
				return err
			}
		}

		if err := s.ledger.RecordPayout(ctx, tx, batch, attached); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCompleted,
			AggregateType: enums.AggregateBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, ShopID: viewer.ShopID, Role: viewer.Role.String()},
			Data: payloads.BatchCompletedEvent{
				BatchID:     batch.ID,
				ShopID:      batch.ShopID,
				CompletedAt: now,
			},
		})
	})
}

// Get returns one batch with its orders. Batches outside the viewer's
// reach read as not found rather than forbidden.
func (s *service) Get(ctx context.Context, viewer Viewer, batchID uuid.UUID) (*models.Batch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if !canView(viewer, batch) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	return batch, nil
}

func (s *service) List(ctx context.Context, viewer Viewer, params pagination.Params) (*BatchList, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByBuyer(ctx, viewer.UserID, params)
}

func (s *service) recomputeTotals(ctx context.Context, tx *gorm.DB, batch *models.Batch) error {
	attached, err := s.orders.WithTx(tx).FindByBatch(ctx, batch.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch orders")
	}
	items, cents, _ := sumCountable(attached)
	updates := map[string]any{"total_items": items, "total_cents": cents}
	if err := s.repo.WithTx(tx).Update(ctx, batch.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch totals")
	}
	batch.TotalItems = items
	batch.TotalCents = cents
	return nil
}

// sumCountable folds paid-or-completed orders into running totals.
// Refunded orders stay attached but count for nothing.
func sumCountable(orders []models.Order) (items, cents, countable int) {
	for _, order := range orders {
		switch order.Status {
		case enums.OrderStatusPaid, enums.OrderStatusCompleted:
			items += order.Quantity
			cents += order.TotalCents
			countable++
		}
	}
	return items, cents, countable
}

func canView(viewer Viewer, batch *models.Batch) bool {
	if batch.BuyerID == viewer.UserID {
		return true
	}
	return viewer.ShopID != nil && *viewer.ShopID == batch.ShopID
}
