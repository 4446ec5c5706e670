package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/showcart-backend/internal/checkout/reservation"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryKeeper adjusts product stock counters as orders change state.
// Restore with fromPaid set also backs out the sale counter.
type InventoryKeeper interface {
	RecordSale(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, fromPaid bool) error
}

type ledgerRecorder interface {
	RecordSale(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordRefund(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type batchAggregator interface {
	AttachPaidOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Batch, error)
	HandleRefund(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) error
}

// Service owns order state transitions after checkout. Every mutation runs
// in one transaction together with its inventory, ledger and batch side
// effects, so a failed step leaves no partial state behind.
type Service interface {
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, viewer Viewer, params pagination.Params, filters ListFilters) (*OrderList, error)
	Cancel(ctx context.Context, buyerID, orderID uuid.UUID) error
	Expire(ctx context.Context, orderID uuid.UUID) error
	Refund(ctx context.Context, viewer Viewer, orderID uuid.UUID) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	FinalizePaid(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryKeeper
	ledger    ledgerRecorder
	batches   batchAggregator
	now       func() time.Time
}

// NewService builds the order service with the required collaborators.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, inventory InventoryKeeper, ledger ledgerRecorder, batches batchAggregator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory keeper required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger recorder required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch aggregator required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		inventory: inventory,
		ledger:    ledger,
		batches:   batches,
		now:       time.Now,
	}, nil
}

// Get returns one order visible to the viewer. Orders outside the viewer's
// reach read as not found rather than forbidden.
func (s *service) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canView(viewer, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, viewer Viewer, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByBuyer(ctx, viewer.UserID, params, filters)
}

// Cancel lets a buyer release a pending claim. Canceling an already
// canceled order is a no-op.
func (s *service) Cancel(ctx context.Context, buyerID, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		if order.Status == enums.OrderStatusCanceled {
			return nil
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCanceled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be canceled")
		}
		return s.cancelPending(ctx, tx, repo, order, enums.CancelReasonBuyer)
	})
}

// Expire cancels one overdue pending order on behalf of the sweeper. An
// order that already left pending is a no-op, so a slow sweep cannot undo
// a payment that raced it.
func (s *service) Expire(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		return s.cancelPending(ctx, tx, repo, order, enums.CancelReasonExpired)
	})
}

// cancelPending moves a pending order to canceled, returns its reserved
// stock and emits the matching event. Callers hold the transaction and
// have already checked ownership and state.
func (s *service) cancelPending(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, reason enums.CancelReason) error {
	now := s.now()
	updates := map[string]any{
		"status":        enums.OrderStatusCanceled,
		"canceled_at":   now,
		"cancel_reason": reason,
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if order.ProductID != nil && order.Quantity > 0 {
		if err := s.inventory.Restore(ctx, tx, *order.ProductID, order.Quantity, false); err != nil {
			return err
		}
	}

	var productID uuid.UUID
	if order.ProductID != nil {
		productID = *order.ProductID
	}
	if reason == enums.CancelReasonExpired {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderExpiredEvent{
				OrderID:   order.ID,
				BuyerID:   order.BuyerID,
				ProductID: productID,
				Quantity:  order.Quantity,
				ExpiredAt: now,
			},
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(order.BuyerID, nil, enums.UserRoleBuyer),
		Data: payloads.OrderCanceledEvent{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			ShopID:     order.ShopID,
			ProductID:  productID,
			Quantity:   order.Quantity,
			Reason:     reason,
			CanceledAt: now,
		},
	})
}

// Refund reverses a paid order for the selling shop: restores stock,
// backs out the sale counter, books the ledger reversal and lets the
// batch aggregator recompute or cancel the affected batch.
func (s *service) Refund(ctx context.Context, viewer Viewer, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if viewer.ShopID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.ShopID != *viewer.ShopID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
		}
		if order.Status == enums.OrderStatusRefunded {
			return nil
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusRefunded) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded")
		}

		if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusRefunded}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		if order.ProductID != nil && order.Quantity > 0 {
			if err := s.inventory.Restore(ctx, tx, *order.ProductID, order.Quantity, true); err != nil {
				return err
			}
		}
		if err := s.ledger.RecordRefund(ctx, tx, order); err != nil {
			return err
		}
		if order.BatchID != nil {
			if err := s.batches.HandleRefund(ctx, tx, *order.BatchID); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(viewer.UserID, viewer.ShopID, viewer.Role),
			Data: payloads.OrderRefundedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				ShopID:      order.ShopID,
				AmountCents: order.TotalCents,
				RefundedAt:  s.now(),
			},
		})
	})
}

// MarkPaid applies a processor-confirmed payment. Repeat deliveries for an
// already-confirmed order are no-ops. A confirmation for a canceled or
// missing order is recorded for manual reconciliation and returns a state
// conflict.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}

	var flagged *payloads.PaymentReconciliationFlaggedEvent
	orderExists := false

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				flagged = &payloads.PaymentReconciliationFlaggedEvent{
					OrderID:         orderID,
					PaymentIntentID: paymentIntentID,
					Reason:          "order_missing",
				}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		switch order.Status {
		case enums.OrderStatusPaid, enums.OrderStatusRefunded, enums.OrderStatusCompleted:
			// Confirmation already applied once before.
			return nil
		case enums.OrderStatusCanceled:
			orderExists = true
			flagged = &payloads.PaymentReconciliationFlaggedEvent{
				OrderID:         order.ID,
				PaymentIntentID: paymentIntentID,
				OrderStatus:     order.Status,
				Reason:          "paid_after_cancel",
			}
			return nil
		}

		now := s.now()
		updates := map[string]any{
			"status":            enums.OrderStatusPaid,
			"paid_at":           now,
			"payment_intent_id": paymentIntentID,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		order.PaymentIntentID = &paymentIntentID
		return s.FinalizePaid(ctx, tx, order)
	})
	if err != nil {
		return err
	}
	if flagged == nil {
		return nil
	}

	// The money moved but the order cannot take it. Persist the flag and
	// surface the mismatch to monitoring in a transaction of its own, then
	// reject the delivery.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if orderExists {
			updates := map[string]any{"payment_reconciliation_flagged": true}
			if err := s.repo.WithTx(tx).Update(ctx, orderID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order for reconciliation")
			}
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReconciliationFlagged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   orderID,
			Version:       1,
			Data:          *flagged,
		})
	})
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment confirmed for an order that is not pending").
		WithDetails(map[string]any{"order_id": orderID, "reason": flagged.Reason})
}

// FinalizePaid applies the side effects of a confirmed payment inside the
// caller's transaction: sale counter, ledger credit, batch attachment and
// the order.paid event. The order must already be persisted as paid; its
// BatchID is filled in from the attachment.
func (s *service) FinalizePaid(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if order.Status != enums.OrderStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
	}
	if order.ProductID != nil && order.Quantity > 0 {
		if err := s.inventory.RecordSale(ctx, tx, *order.ProductID, order.Quantity); err != nil {
			return err
		}
	}
	if err := s.ledger.RecordSale(ctx, tx, order); err != nil {
		return err
	}
	batch, err := s.batches.AttachPaidOrder(ctx, tx, order)
	if err != nil {
		return err
	}
	order.BatchID = &batch.ID

	paidAt := s.now()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	var intentID string
	if order.PaymentIntentID != nil {
		intentID = *order.PaymentIntentID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderPaidEvent{
			OrderID:         order.ID,
			BuyerID:         order.BuyerID,
			ShopID:          order.ShopID,
			BatchID:         order.BatchID,
			PaymentIntentID: intentID,
			AmountCents:     order.TotalCents,
			PaidAt:          paidAt,
		},
	})
}

func canView(viewer Viewer, order *models.Order) bool {
	if order.BuyerID == viewer.UserID {
		return true
	}
	return viewer.ShopID != nil && *viewer.ShopID == order.ShopID
}

func buildActor(userID uuid.UUID, shopID *uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		ShopID: shopID,
		Role:   role.String(),
	}
}

type inventoryKeeperImpl struct{}

// NewInventoryKeeper exposes the stock-counter implementation backed by
// the reservation package.
func NewInventoryKeeper() InventoryKeeper {
	return inventoryKeeperImpl{}
}

func (inventoryKeeperImpl) RecordSale(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return reservation.RecordSale(ctx, tx, productID, qty)
}

func (inventoryKeeperImpl) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, fromPaid bool) error {
	return reservation.RestoreInventory(ctx, tx, productID, qty, fromPaid)
}
