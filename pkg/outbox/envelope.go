package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef records who caused the event: the acting user and, for
// seller actions, the shop they acted through. System-driven events
// (sweeper, webhooks) carry no actor.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	ShopID *uuid.UUID `json:"shopId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// PayloadEnvelope is the wire shape stored in outbox_events.payload and
// delivered verbatim to Pub/Sub. EventID is the dedupe handle consumers
// key their idempotency marks on; Data holds the versioned
// domain payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
