package registry

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryRoundTrip(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventBatchReady, 1, JSONDecoder[payloads.BatchReadyEvent]())

	input := json.RawMessage(`{"total_items":3,"total_cents":4200}`)
	decoded, err := reg.Decode(enums.EventBatchReady, 1, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	payload, ok := decoded.(payloads.BatchReadyEvent)
	if !ok {
		t.Fatalf("unexpected decoded type %T", decoded)
	}
	if payload.TotalItems != 3 || payload.TotalCents != 4200 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventBatchReady, 1, JSONDecoder[payloads.BatchReadyEvent]())

	if _, err := reg.Decode(enums.EventBatchReady, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered version")
	}
	if _, err := reg.Decode(enums.EventOrderPaid, 1, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered event type")
	}
}
