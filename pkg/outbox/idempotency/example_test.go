package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type scriptedStore struct {
	marks map[string]bool
}

func (s *scriptedStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *scriptedStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.marks[key] {
		return false, nil
	}
	s.marks[key] = true
	return true, nil
}

func (s *scriptedStore) IdempotencyKey(scope, id string) string {
	return "sc:idempotency:" + scope + ":" + id
}

func (s *scriptedStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.marks, key)
	}
	return nil
}

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&scriptedStore{marks: map[string]bool{}}, 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	handle := func() {
		already, _ := manager.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
		if already {
			fmt.Println("duplicate delivery, skipping")
			return
		}
		fmt.Println("processing event")
	}

	handle()
	handle()
	// Output:
	// processing event
	// duplicate delivery, skipping
}
