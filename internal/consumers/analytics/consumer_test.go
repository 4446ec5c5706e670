package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
)

func TestProcessFlattensOrderCreated(t *testing.T) {
	h := newAnalyticsHarness(t)

	orderID := uuid.New()
	buyerID := uuid.New()
	envelope := sealedEnvelope(t, map[string]any{
		"order_id":    orderID.String(),
		"buyer_id":    buyerID.String(),
		"shop_id":     uuid.NewString(),
		"product_id":  uuid.NewString(),
		"show_id":     uuid.NewString(),
		"quantity":    2,
		"total_cents": 5000,
	})

	require.NoError(t, h.consumer.Process(context.Background(), enums.EventOrderCreated, envelope))

	require.Len(t, h.inserter.rows, 1)
	row, ok := h.inserter.rows[0].(*liveSaleEventRow)
	require.True(t, ok, "expected liveSaleEventRow, got %T", h.inserter.rows[0])

	assert.Equal(t, string(enums.EventOrderCreated), row.EventType)
	require.NotNil(t, row.OrderID)
	assert.Equal(t, orderID.String(), *row.OrderID)
	require.NotNil(t, row.BuyerID)
	assert.Equal(t, buyerID.String(), *row.BuyerID)
	require.NotNil(t, row.Quantity)
	assert.EqualValues(t, 2, *row.Quantity)
	require.NotNil(t, row.AmountCents)
	assert.EqualValues(t, 5000, *row.AmountCents)
	assert.Nil(t, row.BatchID, "batch id must stay empty for an order event")

	require.True(t, row.Payload.Valid, "raw payload must ride along")
	rawJSON, ok := any(row.Payload.JSONVal).(string)
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rawJSON), &payload))
	assert.Contains(t, payload, "product_id")
}

func TestProcessFlattensBatchReady(t *testing.T) {
	h := newAnalyticsHarness(t)

	batchID := uuid.New()
	envelope := sealedEnvelope(t, map[string]any{
		"batch_id":    batchID.String(),
		"buyer_id":    uuid.NewString(),
		"shop_id":     uuid.NewString(),
		"total_items": 3,
		"total_cents": 7500,
	})

	require.NoError(t, h.consumer.Process(context.Background(), enums.EventBatchReady, envelope))

	row := h.inserter.rows[0].(*liveSaleEventRow)
	require.NotNil(t, row.BatchID)
	assert.Equal(t, batchID.String(), *row.BatchID)
	require.NotNil(t, row.Quantity)
	assert.EqualValues(t, 3, *row.Quantity, "total_items lands in quantity")
	require.NotNil(t, row.AmountCents)
	assert.EqualValues(t, 7500, *row.AmountCents)
	assert.Nil(t, row.OrderID)
}

func TestProcessSkipsAlreadyProcessedEvent(t *testing.T) {
	h := newAnalyticsHarness(t)
	h.manager.alreadyProcessed = true

	envelope := sealedEnvelope(t, map[string]any{})
	require.NoError(t, h.consumer.Process(context.Background(), enums.EventOrderPaid, envelope))
	assert.Empty(t, h.inserter.rows)
}

func TestProcessUnmarksAndRetriesOnInsertFailure(t *testing.T) {
	h := newAnalyticsHarness(t)
	h.inserter.err = errors.New("bigquery down")

	envelope := sealedEnvelope(t, map[string]any{"order_id": uuid.NewString()})
	err := h.consumer.Process(context.Background(), enums.EventOrderPaid, envelope)

	require.Error(t, err)
	assert.NotErrorIs(t, err, errSkipEvent, "insert failure must nack for redelivery")
	assert.Equal(t, 1, h.manager.deletes, "mark must be released so the retry can ingest")
}

func TestProcessUnmarksAndSkipsMalformedPayload(t *testing.T) {
	h := newAnalyticsHarness(t)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       []byte("{invalid json"),
	}
	err := h.consumer.Process(context.Background(), enums.EventOrderCreated, envelope)

	require.ErrorIs(t, err, errSkipEvent, "broken payload must ack, not loop")
	assert.Equal(t, 1, h.manager.deletes)
	assert.Empty(t, h.inserter.rows)
}

func TestProcessRejectsMissingEventID(t *testing.T) {
	h := newAnalyticsHarness(t)

	err := h.consumer.Process(context.Background(), enums.EventOrderPaid, outbox.PayloadEnvelope{Version: 1})
	require.ErrorIs(t, err, errSkipEvent)
	assert.Zero(t, h.manager.deletes, "nothing was marked, nothing to release")
	assert.Empty(t, h.inserter.rows)
}

func TestConsumeSkipsUnknownEventType(t *testing.T) {
	h := newAnalyticsHarness(t)

	msg := &pubsub.Message{
		ID:         "m-1",
		Attributes: map[string]string{"event_type": "pack_opened"},
		Data:       []byte(`{}`),
	}
	err := h.consumer.consume(context.Background(), msg)
	require.ErrorIs(t, err, errSkipEvent)
	assert.Empty(t, h.inserter.rows)
}

func TestNewConsumerValidation(t *testing.T) {
	logg := testLogger()
	manager := &stubIdempotency{}

	_, err := NewConsumer(nil, "t", manager, logg)
	require.ErrorContains(t, err, "bigquery client required")

	_, err = NewConsumer(&stubInserter{}, "  ", manager, logg)
	require.ErrorContains(t, err, "table name required")

	_, err = NewConsumer(&stubInserter{}, "t", nil, logg)
	require.ErrorContains(t, err, "idempotency manager required")
}

type analyticsHarness struct {
	inserter *stubInserter
	manager  *stubIdempotency
	consumer *Consumer
}

func newAnalyticsHarness(t *testing.T) *analyticsHarness {
	t.Helper()
	h := &analyticsHarness{
		inserter: &stubInserter{},
		manager:  &stubIdempotency{},
	}
	consumer, err := NewConsumer(h.inserter, "live_sale_events", h.manager, testLogger())
	require.NoError(t, err)
	h.consumer = consumer
	return h
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "analytics-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	})
}

func sealedEnvelope(t *testing.T, payload any) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
}

type stubInserter struct {
	rows []any
	err  error
}

func (s *stubInserter) InsertRows(_ context.Context, _ string, rows []any) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

type stubIdempotency struct {
	alreadyProcessed bool
	checkErr         error
	deletes          int
}

func (s *stubIdempotency) CheckAndMarkProcessed(context.Context, string, uuid.UUID) (bool, error) {
	return s.alreadyProcessed, s.checkErr
}

func (s *stubIdempotency) Delete(context.Context, string, uuid.UUID) error {
	s.deletes++
	return nil
}
