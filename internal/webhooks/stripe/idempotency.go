package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/showcart-backend/pkg/redis"
)

// IdempotencyGuard dedupes webhook deliveries with a scoped SETNX mark.
// The mark is written before the handler runs; the caller removes it on
// handler failure so the processor's redelivery is not swallowed.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark returns true when eventID was already marked inside the
// TTL window. The first caller marks and gets false.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	// The stored value is only for operators inspecting Redis.
	mark := time.Now().UTC().Format(time.RFC3339)
	set, err := g.store.SetNX(ctx, key, mark, g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark webhook delivery: %w", err)
	}
	return !set, nil
}

// Delete unmarks eventID after a failed handler run.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
