// Package idempotency gives event consumers at-most-once processing on
// top of Pub/Sub's at-least-once delivery.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/redis"
)

// Manager marks processed envelope event IDs per consumer with SETNX.
// Keys live under sc:idempotency:evt:processed:<consumer>:<event_id>
// and expire after the TTL, which bounds the dedupe window to however
// long the broker can plausibly redeliver.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed marks the event and reports whether it was
// already marked. The caller processes only on false, and calls Delete
// if processing then fails.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.markKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	mark := time.Now().UTC().Format(time.RFC3339)
	set, err := m.store.SetNX(ctx, key, mark, m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete unmarks the event so a redelivery can retry it.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.markKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) markKey(consumer string, eventID uuid.UUID) (string, error) {
	if strings.TrimSpace(consumer) == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
