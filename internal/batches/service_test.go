package batches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
)

type batchUpdate struct {
	batchID uuid.UUID
	updates map[string]any
}

type stubBatchRepo struct {
	batches  map[uuid.UUID]*models.Batch
	updates  []batchUpdate
	createFn func(batch *models.Batch) error
}

func newStubBatchRepo(batches ...*models.Batch) *stubBatchRepo {
	byID := make(map[uuid.UUID]*models.Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	return &stubBatchRepo{batches: byID}
}

func (s *stubBatchRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubBatchRepo) Create(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if s.createFn != nil {
		if err := s.createFn(batch); err != nil {
			return nil, err
		}
	}
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	s.batches[batch.ID] = batch
	return batch, nil
}

func (s *stubBatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *batch
	return &clone, nil
}

func (s *stubBatchRepo) FindOpenTriple(ctx context.Context, buyerID, shopID, showID uuid.UUID) (*models.Batch, error) {
	for _, batch := range s.batches {
		if batch.BuyerID != buyerID || batch.ShopID != shopID || batch.ShowID != showID {
			continue
		}
		if batch.Status == enums.BatchStatusActive || batch.Status == enums.BatchStatusReady {
			clone := *batch
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *stubBatchRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*BatchList, error) {
	var out []models.Batch
	for _, batch := range s.batches {
		if batch.BuyerID == buyerID {
			out = append(out, *batch)
		}
	}
	return &BatchList{Batches: out}, nil
}

func (s *stubBatchRepo) Update(ctx context.Context, batchID uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, batchUpdate{batchID: batchID, updates: updates})
	if batch, ok := s.batches[batchID]; ok {
		if status, ok := updates["status"].(enums.BatchStatus); ok {
			batch.Status = status
		}
		if items, ok := updates["total_items"].(int); ok {
			batch.TotalItems = items
		}
		if cents, ok := updates["total_cents"].(int); ok {
			batch.TotalCents = cents
		}
	}
	return nil
}

type stubOrderStore struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderStore(rows ...*models.Order) *stubOrderStore {
	byID := make(map[uuid.UUID]*models.Order, len(rows))
	for _, o := range rows {
		byID[o.ID] = o
	}
	return &stubOrderStore{orders: byID}
}

func (s *stubOrderStore) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *stubOrderStore) FindPendingClaim(ctx context.Context, buyerID, productID, showID uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.BatchID != nil && *order.BatchID == batchID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderStore) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if batchID, ok := updates["batch_id"].(uuid.UUID); ok {
		order.BatchID = &batchID
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	return nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) eventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

type stubPayouts struct {
	batches []uuid.UUID
	orders  [][]models.Order
}

func (s *stubPayouts) RecordPayout(ctx context.Context, tx *gorm.DB, batch *models.Batch, orders []models.Order) error {
	s.batches = append(s.batches, batch.ID)
	s.orders = append(s.orders, orders)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	repo    *stubBatchRepo
	orders  *stubOrderStore
	outbox  *stubOutbox
	payouts *stubPayouts
	svc     Service
	nowTime time.Time
}

func newFixture(t *testing.T, batchRows []*models.Batch, orderRows []*models.Order) *fixture {
	t.Helper()

	f := &fixture{
		repo:    newStubBatchRepo(batchRows...),
		orders:  newStubOrderStore(orderRows...),
		outbox:  &stubOutbox{},
		payouts: &stubPayouts{},
		nowTime: time.Date(2025, 6, 15, 21, 30, 0, 0, time.UTC),
	}
	svc, err := NewService(f.repo, f.orders, stubTxRunner{}, f.outbox, f.payouts)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return f.nowTime }
	f.svc = svc
	return f
}

func paidOrder(buyerID, shopID, showID uuid.UUID, qty, totalCents int) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ShopID:     shopID,
		ShowID:     showID,
		Quantity:   qty,
		TotalCents: totalCents,
		Status:     enums.OrderStatusPaid,
	}
}

func TestAttachPaidOrderCreatesBatch(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	order := paidOrder(buyerID, shopID, showID, 2, 4000)
	f := newFixture(t, nil, []*models.Order{order})

	batch, err := f.svc.AttachPaidOrder(context.Background(), nil, order)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, buyerID, batch.BuyerID)
	assert.Equal(t, enums.BatchStatusActive, batch.Status)

	require.NotNil(t, order.BatchID)
	assert.Equal(t, batch.ID, *order.BatchID)

	assert.Equal(t, 2, batch.TotalItems)
	assert.Equal(t, 4000, batch.TotalCents)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventBatchCreated, f.outbox.events[0].EventType)
	payload, ok := f.outbox.events[0].Data.(payloads.BatchCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, batch.ID, payload.BatchID)
	assert.Equal(t, showID, payload.ShowID)
}

func TestAttachPaidOrderReusesOpenBatch(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	existing := &models.Batch{
		ID:      uuid.New(),
		BuyerID: buyerID,
		ShopID:  shopID,
		ShowID:  showID,
		Status:  enums.BatchStatusActive,
	}
	first := paidOrder(buyerID, shopID, showID, 1, 1500)
	first.BatchID = &existing.ID
	second := paidOrder(buyerID, shopID, showID, 3, 4500)
	f := newFixture(t, []*models.Batch{existing}, []*models.Order{first, second})

	batch, err := f.svc.AttachPaidOrder(context.Background(), nil, second)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, batch.ID)

	// Totals are recomputed across both attached orders, whatever the
	// order they arrived in.
	assert.Equal(t, 4, batch.TotalItems)
	assert.Equal(t, 6000, batch.TotalCents)

	// No batch.created for a reused batch.
	assert.Empty(t, f.outbox.events)
}

func TestAttachPaidOrderRejectsPending(t *testing.T) {
	order := paidOrder(uuid.New(), uuid.New(), uuid.New(), 1, 1000)
	order.Status = enums.OrderStatusPending
	f := newFixture(t, nil, []*models.Order{order})

	_, err := f.svc.AttachPaidOrder(context.Background(), nil, order)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Nil(t, order.BatchID)
}

func TestAttachPaidOrderCreateRace(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	order := paidOrder(buyerID, shopID, showID, 1, 2000)
	f := newFixture(t, nil, []*models.Order{order})

	// The concurrent payment commits its batch between our lookup and our
	// insert; the partial unique index rejects ours.
	winner := &models.Batch{
		ID:      uuid.New(),
		BuyerID: buyerID,
		ShopID:  shopID,
		ShowID:  showID,
		Status:  enums.BatchStatusActive,
	}
	f.repo.createFn = func(batch *models.Batch) error {
		f.repo.batches[winner.ID] = winner
		return errors.New(`duplicate key value violates unique constraint "ux_batches_active_triple"`)
	}

	batch, err := f.svc.AttachPaidOrder(context.Background(), nil, order)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, batch.ID)
	require.NotNil(t, order.BatchID)
	assert.Equal(t, winner.ID, *order.BatchID)
	assert.Empty(t, f.outbox.events)
}

func TestHandleRefundRecomputesTotals(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	batch := &models.Batch{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ShopID:     shopID,
		ShowID:     showID,
		Status:     enums.BatchStatusActive,
		TotalItems: 4,
		TotalCents: 6000,
	}
	kept := paidOrder(buyerID, shopID, showID, 1, 1500)
	kept.BatchID = &batch.ID
	refunded := paidOrder(buyerID, shopID, showID, 3, 4500)
	refunded.Status = enums.OrderStatusRefunded
	refunded.BatchID = &batch.ID
	f := newFixture(t, []*models.Batch{batch}, []*models.Order{kept, refunded})

	require.NoError(t, f.svc.HandleRefund(context.Background(), nil, batch.ID))

	assert.Equal(t, 1, batch.TotalItems)
	assert.Equal(t, 1500, batch.TotalCents)
	assert.Equal(t, enums.BatchStatusActive, batch.Status)
	assert.Empty(t, f.outbox.events)
}

func TestHandleRefundCancelsDrainedBatch(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	batch := &models.Batch{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ShopID:     shopID,
		ShowID:     showID,
		Status:     enums.BatchStatusActive,
		TotalItems: 1,
		TotalCents: 1500,
	}
	only := paidOrder(buyerID, shopID, showID, 1, 1500)
	only.Status = enums.OrderStatusRefunded
	only.BatchID = &batch.ID
	f := newFixture(t, []*models.Batch{batch}, []*models.Order{only})

	require.NoError(t, f.svc.HandleRefund(context.Background(), nil, batch.ID))

	assert.Equal(t, enums.BatchStatusCanceled, batch.Status)
	assert.Equal(t, 0, batch.TotalItems)
	assert.Equal(t, 0, batch.TotalCents)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventBatchCanceled, f.outbox.events[0].EventType)
	payload, ok := f.outbox.events[0].Data.(payloads.BatchCanceledEvent)
	require.True(t, ok)
	assert.Equal(t, batch.ID, payload.BatchID)
}

func TestMarkReady(t *testing.T) {
	buyerID := uuid.New()
	batch := &models.Batch{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ShopID:     uuid.New(),
		ShowID:     uuid.New(),
		Status:     enums.BatchStatusActive,
		TotalItems: 2,
		TotalCents: 3000,
	}
	f := newFixture(t, []*models.Batch{batch}, nil)

	require.NoError(t, f.svc.MarkReady(context.Background(), buyerID, batch.ID))

	require.Len(t, f.repo.updates, 1)
	call := f.repo.updates[0]
	assert.Equal(t, enums.BatchStatusReady, call.updates["status"])
	assert.Equal(t, f.nowTime, call.updates["ready_at"])

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventBatchReady, f.outbox.events[0].EventType)
	payload, ok := f.outbox.events[0].Data.(payloads.BatchReadyEvent)
	require.True(t, ok)
	assert.Equal(t, 2, payload.TotalItems)
	assert.Equal(t, 3000, payload.TotalCents)
}

func TestMarkReadyIdempotent(t *testing.T) {
	buyerID := uuid.New()
	batch := &models.Batch{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Status:  enums.BatchStatusReady,
	}
	f := newFixture(t, []*models.Batch{batch}, nil)

	require.NoError(t, f.svc.MarkReady(context.Background(), buyerID, batch.ID))
	assert.Empty(t, f.repo.updates)
	assert.Empty(t, f.outbox.events)
}

func TestMarkReadyWrongBuyer(t *testing.T) {
	batch := &models.Batch{ID: uuid.New(), BuyerID: uuid.New(), Status: enums.BatchStatusActive}
	f := newFixture(t, []*models.Batch{batch}, nil)

	err := f.svc.MarkReady(context.Background(), uuid.New(), batch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestMarkReadyTerminalBatch(t *testing.T) {
	buyerID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), BuyerID: buyerID, Status: enums.BatchStatusCompleted}
	f := newFixture(t, []*models.Batch{batch}, nil)

	err := f.svc.MarkReady(context.Background(), buyerID, batch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestComplete(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	sellerID := uuid.New()
	batch := &models.Batch{
		ID:      uuid.New(),
		BuyerID: buyerID,
		ShopID:  shopID,
		ShowID:  showID,
		Status:  enums.BatchStatusReady,
	}
	first := paidOrder(buyerID, shopID, showID, 1, 1500)
	first.BatchID = &batch.ID
	second := paidOrder(buyerID, shopID, showID, 2, 3000)
	second.BatchID = &batch.ID
	f := newFixture(t, []*models.Batch{batch}, []*models.Order{first, second})

	viewer := Viewer{UserID: sellerID, ShopID: &shopID, Role: enums.UserRoleSeller}
	require.NoError(t, f.svc.Complete(context.Background(), viewer, batch.ID))

	assert.Equal(t, enums.BatchStatusCompleted, batch.Status)
	assert.Equal(t, enums.OrderStatusCompleted, first.Status)
	assert.Equal(t, enums.OrderStatusCompleted, second.Status)

	require.Equal(t, []uuid.UUID{batch.ID}, f.payouts.batches)
	require.Len(t, f.payouts.orders[0], 2)

	types := f.outbox.eventTypes()
	assert.Contains(t, types, enums.EventBatchCompleted)
	completedEvents := 0
	for _, et := range types {
		if et == enums.EventOrderCompleted {
			completedEvents++
		}
	}
	assert.Equal(t, 2, completedEvents)

	// batch.completed carries the seller as actor.
	last := f.outbox.events[len(f.outbox.events)-1]
	require.NotNil(t, last.Actor)
	assert.Equal(t, sellerID, last.Actor.UserID)
}

func TestCompleteSkipsRefundedOrders(t *testing.T) {
	buyerID, shopID, showID := uuid.New(), uuid.New(), uuid.New()
	batch := &models.Batch{
		ID:      uuid.New(),
		BuyerID: buyerID,
		ShopID:  shopID,
		ShowID:  showID,
		Status:  enums.BatchStatusReady,
	}
	kept := paidOrder(buyerID, shopID, showID, 1, 1500)
	kept.BatchID = &batch.ID
	refunded := paidOrder(buyerID, shopID, showID, 1, 1000)
	refunded.Status = enums.OrderStatusRefunded
	refunded.BatchID = &batch.ID
	f := newFixture(t, []*models.Batch{batch}, []*models.Order{kept, refunded})

	viewer := Viewer{UserID: uuid.New(), ShopID: &shopID, Role: enums.UserRoleSeller}
	require.NoError(t, f.svc.Complete(context.Background(), viewer, batch.ID))

	assert.Equal(t, enums.OrderStatusCompleted, kept.Status)
	assert.Equal(t, enums.OrderStatusRefunded, refunded.Status)
}

func TestCompleteRequiresReady(t *testing.T) {
	shopID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), BuyerID: uuid.New(), ShopID: shopID, Status: enums.BatchStatusActive}
	f := newFixture(t, []*models.Batch{batch}, nil)

	viewer := Viewer{UserID: uuid.New(), ShopID: &shopID, Role: enums.UserRoleSeller}
	err := f.svc.Complete(context.Background(), viewer, batch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.payouts.batches)
}

func TestCompleteIdempotent(t *testing.T) {
	shopID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), BuyerID: uuid.New(), ShopID: shopID, Status: enums.BatchStatusCompleted}
	f := newFixture(t, []*models.Batch{batch}, nil)

	viewer := Viewer{UserID: uuid.New(), ShopID: &shopID, Role: enums.UserRoleSeller}
	require.NoError(t, f.svc.Complete(context.Background(), viewer, batch.ID))
	assert.Empty(t, f.repo.updates)
	assert.Empty(t, f.payouts.batches)
	assert.Empty(t, f.outbox.events)
}

func TestCompleteWrongShop(t *testing.T) {
	batch := &models.Batch{ID: uuid.New(), BuyerID: uuid.New(), ShopID: uuid.New(), Status: enums.BatchStatusReady}
	f := newFixture(t, []*models.Batch{batch}, nil)

	otherShop := uuid.New()
	viewer := Viewer{UserID: uuid.New(), ShopID: &otherShop, Role: enums.UserRoleSeller}
	err := f.svc.Complete(context.Background(), viewer, batch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestGetBatchVisibility(t *testing.T) {
	buyerID := uuid.New()
	shopID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), BuyerID: buyerID, ShopID: shopID, Status: enums.BatchStatusActive}
	f := newFixture(t, []*models.Batch{batch}, nil)

	got, err := f.svc.Get(context.Background(), Viewer{UserID: buyerID}, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)

	got, err = f.svc.Get(context.Background(), Viewer{UserID: uuid.New(), ShopID: &shopID}, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)

	_, err = f.svc.Get(context.Background(), Viewer{UserID: uuid.New()}, batch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
