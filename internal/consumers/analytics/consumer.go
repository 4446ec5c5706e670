// Package analytics streams the order and batch event firehose into the
// warehouse. Rows are append-only; correctness comes from writing each
// event id at most once, not from updates.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

// errSkipEvent marks deliveries that must be acked without ingestion.
// Nacking a deterministically broken message would just redeliver it
// forever.
var errSkipEvent = errors.New("skip analytics event")

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer appends the order/batch event stream to BigQuery, one row per
// event, at most once per event id.
type Consumer struct {
	client  tableInserter
	table   string
	manager idempotencyChecker
	logg    *logger.Logger
}

func NewConsumer(client tableInserter, table string, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	table = strings.TrimSpace(table)
	switch {
	case client == nil:
		return nil, errors.New("bigquery client required")
	case table == "":
		return nil, errors.New("bigquery table name required")
	case manager == nil:
		return nil, errors.New("idempotency manager required")
	case logg == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{client: client, table: table, manager: manager, logg: logg}, nil
}

// Run pulls from the subscription until the context is canceled. Only
// transient failures are nacked for redelivery.
func (c *Consumer) Run(ctx context.Context, subscription *pubsub.Subscriber) error {
	if subscription == nil {
		return errors.New("analytics subscription required")
	}
	return subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := c.consume(ctx, msg); err != nil && !errors.Is(err, errSkipEvent) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) consume(ctx context.Context, msg *pubsub.Message) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return fmt.Errorf("%w: %v", errSkipEvent, err)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return fmt.Errorf("%w: decode envelope: %v", errSkipEvent, err)
	}

	return c.Process(ctx, eventType, envelope)
}

// Process ingests one outbox envelope. A malformed payload is unmarked and
// skipped, so a later manual redelivery can still land it; a failed insert
// is unmarked and retried through nack.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if envelope.EventID == "" {
		return fmt.Errorf("%w: event id missing", errSkipEvent)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("%w: parse event id: %v", errSkipEvent, err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	row, err := newEventRow(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build live sale row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return fmt.Errorf("%w: %v", errSkipEvent, err)
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert live sale row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "live sale event ingested")
	return nil
}

// liveSaleEventRow flattens the common identifiers out of the payload so
// analysts can join without parsing JSON; the raw payload rides along for
// everything else.
type liveSaleEventRow struct {
	EventID     string             `bigquery:"event_id"`
	EventType   string             `bigquery:"event_type"`
	OccurredAt  time.Time          `bigquery:"occurred_at"`
	OrderID     *string            `bigquery:"order_id"`
	BatchID     *string            `bigquery:"batch_id"`
	ProductID   *string            `bigquery:"product_id"`
	ShowID      *string            `bigquery:"show_id"`
	BuyerID     *string            `bigquery:"buyer_id"`
	ShopID      *string            `bigquery:"shop_id"`
	Quantity    *int64             `bigquery:"quantity"`
	AmountCents *int64             `bigquery:"amount_cents"`
	Payload     cbigquery.NullJSON `bigquery:"payload"`
}

func newEventRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*liveSaleEventRow, error) {
	payload := map[string]any{}
	raw := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
		raw = cbigquery.NullJSON{Valid: true, JSONVal: string(envelope.Data)}
	}

	return &liveSaleEventRow{
		EventID:     envelope.EventID,
		EventType:   string(eventType),
		OccurredAt:  envelope.OccurredAt,
		OrderID:     optString(payload, "order_id"),
		BatchID:     optString(payload, "batch_id"),
		ProductID:   optString(payload, "product_id"),
		ShowID:      optString(payload, "show_id"),
		BuyerID:     optString(payload, "buyer_id"),
		ShopID:      optString(payload, "shop_id"),
		Quantity:    optInt(payload, "quantity", "total_items"),
		AmountCents: optInt(payload, "amount_cents", "total_cents"),
		Payload:     raw,
	}, nil
}

func optString(payload map[string]any, key string) *string {
	str, _ := payload[key].(string)
	if trimmed := strings.TrimSpace(str); trimmed != "" {
		return &trimmed
	}
	return nil
}

// optInt takes the first key present; JSON numbers arrive as float64.
func optInt(payload map[string]any, keys ...string) *int64 {
	for _, key := range keys {
		if num, ok := payload[key].(float64); ok {
			val := int64(num)
			return &val
		}
	}
	return nil
}
