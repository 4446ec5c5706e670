package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/config"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/registry"
)

func TestNewServiceRejectsMissingDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.ErrorContains(t, err, "config is required")

	params := publisherParams(t, nil)
	params.DLQRepository = nil
	_, err = NewService(params)
	require.ErrorContains(t, err, "dlq repository is required")
}

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := outboxRow(t, enums.EventOrderCreated, 0)
	second := outboxRow(t, enums.EventOrderCreated, 0)
	h := newPublisherHarness(t, nil)
	h.repo.events = []models.OutboxEvent{first, second}
	h.broker.results = []publishResult{
		stubResult{err: errors.New("transient")},
		stubResult{},
	}

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	require.Empty(t, h.dlq.entries)
}

func TestProcessBatchEmptyPollIsIdle(t *testing.T) {
	h := newPublisherHarness(t, nil)

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
	require.Empty(t, h.broker.messages)
}

func TestDispatchCarriesEnvelopeAttributes(t *testing.T) {
	event := outboxRow(t, enums.EventOrderPaid, 0)
	event.CreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	h := newPublisherHarness(t, nil)
	h.repo.events = []models.OutboxEvent{event}
	h.broker.results = []publishResult{stubResult{}}
	h.registry.resolved = &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "order-events",
			AggregateType: enums.AggregateOrder,
		},
		Payload: &payloads.OrderPaidEvent{},
	}

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Len(t, h.broker.messages, 1)
	msg := h.broker.messages[0]
	require.Equal(t, []byte(event.Payload), msg.Data)
	require.Equal(t, event.ID.String(), msg.Attributes["event_id"])
	require.Equal(t, string(enums.EventOrderPaid), msg.Attributes["event_type"])
	require.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])
	require.Equal(t, event.CreatedAt.Format(time.RFC3339Nano), msg.Attributes["created_at"])
}

func TestProcessBatchDeadLettersUnresolvableEvent(t *testing.T) {
	event := outboxRow(t, enums.EventOrderCreated, 0)
	h := newPublisherHarness(t, nil)
	h.repo.events = []models.OutboxEvent{event}
	h.registry.resolved = nil
	h.registry.err = registry.NewNonRetryableError(errors.New("invalid payload"))

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	require.Equal(t, event.ID, entry.EventID)
	require.Equal(t, []byte(event.Payload), []byte(entry.Payload))
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.Equal(t, []uuid.UUID{event.ID}, h.repo.terminal)
	require.Empty(t, h.repo.failed)
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	event := outboxRow(t, enums.EventOrderCreated, 1)
	h := newPublisherHarness(t, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})
	h.repo.events = []models.OutboxEvent{event}
	h.broker.results = []publishResult{stubResult{err: errors.New("transient")}}

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	require.Equal(t, event.ID, entry.EventID)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, entry.ErrorReason)
	require.NotNil(t, entry.ErrorMessage)
	require.Contains(t, *entry.ErrorMessage, "max publish attempts reached")
}

type publisherHarness struct {
	repo     *stubOutboxRepo
	broker   *stubPublisher
	registry *stubRegistry
	dlq      *stubDLQRepo
	svc      *Service
}

func newPublisherHarness(t *testing.T, cfgOverride *config.OutboxConfig) *publisherHarness {
	t.Helper()
	h := &publisherHarness{
		repo:     &stubOutboxRepo{},
		broker:   &stubPublisher{},
		registry: &stubRegistry{resolved: resolvedOrderCreated()},
		dlq:      &stubDLQRepo{},
	}

	params := publisherParams(t, cfgOverride)
	params.Repository = h.repo
	params.DLQRepository = h.dlq
	params.Registry = h.registry
	params.PublisherFactory = func(string) publisher { return h.broker }

	svc, err := NewService(params)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func publisherParams(t *testing.T, cfgOverride *config.OutboxConfig) ServiceParams {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if cfgOverride != nil {
		outboxCfg = *cfgOverride
	}
	return ServiceParams{
		Config: &config.Config{Outbox: outboxCfg},
		Logger: logger.New(logger.Options{
			ServiceName: "outbox-publisher-test",
			Output:      io.Discard,
		}),
		DB:            stubDB{},
		PubSub:        stubPubSub{},
		Repository:    &stubOutboxRepo{},
		DLQRepository: &stubDLQRepo{},
		Registry:      &stubRegistry{},
	}
}

func outboxRow(tb testing.TB, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	require.NoError(tb, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

func resolvedOrderCreated() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "order-events",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderCreatedEvent{},
	}
}

type stubOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (s *stubOutboxRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return s.events, nil
}

func (s *stubOutboxRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubOutboxRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	s.terminal = append(s.terminal, id)
	return nil
}

type stubDB struct{}

func (stubDB) Ping(context.Context) error { return nil }

func (stubDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type stubPubSub struct{}

func (stubPubSub) Ping(context.Context) error { return nil }

func (stubPubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type stubPublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (s *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	if len(s.results) == 0 {
		return nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result
}

type stubResult struct {
	err error
}

func (s stubResult) Get(context.Context) (string, error) { return "", s.err }

// stubRegistry echoes the stored row back into the resolved envelope the
// way the real registry does after decoding.
type stubRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *stubRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	resolved := *s.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, s.err
}

type stubDLQRepo struct {
	entries []models.OutboxDLQ
}

func (s *stubDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	s.entries = append(s.entries, entry)
	return nil
}
