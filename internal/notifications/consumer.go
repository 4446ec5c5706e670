package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type shopReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

// Consumer watches domain events and turns order lifecycle transitions into
// in-app notifications. Seller-facing events resolve the shop owner as the
// recipient; buyer-facing events address the buyer directly.
type Consumer struct {
	repo         repository
	shops        shopReader
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, shops shopReader, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		shops:        shops,
		subscription: subscription,
		idempotency:  manager,
		decoders:     notificationDecoders(),
		logg:         logg,
	}, nil
}

// notificationDecoders registers the payload versions this consumer
// understands. A producer shipping v2 before the consumer learns it
// drops to ack-with-warn rather than a redelivery loop.
func notificationDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPaid, 1, registry.JSONDecoder[payloads.OrderPaidEvent]())
	decoders.Register(enums.EventOrderExpired, 1, registry.JSONDecoder[payloads.OrderExpiredEvent]())
	decoders.Register(enums.EventBatchReady, 1, registry.JSONDecoder[payloads.BatchReadyEvent]())
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !c.handles(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handlePayload(ctx, eventType, envelope.Version, envelope.Data, logCtx); err != nil {
		if errors.Is(err, errSkipNotification) {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err), "dropping undeliverable notification")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPaid, enums.EventOrderExpired, enums.EventBatchReady:
		return true
	default:
		return false
	}
}

// errSkipNotification marks failures redelivery cannot repair, like a payload
// referencing a shop that no longer exists.
var errSkipNotification = errors.New("notification skipped")

func (c *Consumer) handlePayload(ctx context.Context, eventType enums.OutboxEventType, version int, data json.RawMessage, logCtx context.Context) error {
	if version <= 0 {
		// Envelopes predating the version field are all v1.
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, data)
	if err != nil {
		return fmt.Errorf("%w: decode %s@v%d: %v", errSkipNotification, eventType, version, err)
	}

	switch payload := decoded.(type) {
	case payloads.OrderPaidEvent:
		return c.notifySellerOfSale(ctx, payload, logCtx)
	case payloads.OrderExpiredEvent:
		return c.notifyBuyerOfExpiry(ctx, payload, logCtx)
	case payloads.BatchReadyEvent:
		return c.notifySellerOfReadyBatch(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) notifySellerOfSale(ctx context.Context, payload payloads.OrderPaidEvent, logCtx context.Context) error {
	ownerID, err := c.resolveShopOwner(ctx, payload.ShopID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("/shops/%s/orders/%s", payload.ShopID, payload.OrderID)
	notification := &models.Notification{
		UserID:  ownerID,
		Type:    enums.NotificationTypeSale,
		Title:   "New sale",
		Message: fmt.Sprintf("Order %s paid: $%s.", payload.OrderID, formatCents(payload.AmountCents)),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "seller notified of sale")
	return nil
}

func (c *Consumer) notifyBuyerOfExpiry(ctx context.Context, payload payloads.OrderExpiredEvent, logCtx context.Context) error {
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("%w: buyer id missing", errSkipNotification)
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeOrder,
		Title:   "Order expired",
		Message: fmt.Sprintf("Your hold on %d item(s) expired before payment and the stock was released.", payload.Quantity),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of expiry")
	return nil
}

func (c *Consumer) notifySellerOfReadyBatch(ctx context.Context, payload payloads.BatchReadyEvent, logCtx context.Context) error {
	ownerID, err := c.resolveShopOwner(ctx, payload.ShopID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("/shops/%s/batches/%s", payload.ShopID, payload.BatchID)
	notification := &models.Notification{
		UserID:  ownerID,
		Type:    enums.NotificationTypeBatch,
		Title:   "Batch ready to fulfill",
		Message: fmt.Sprintf("A buyer closed out their batch: %d item(s), $%s total.", payload.TotalItems, formatCents(payload.TotalCents)),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "seller notified of ready batch")
	return nil
}

func (c *Consumer) resolveShopOwner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error) {
	if shopID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: shop id missing", errSkipNotification)
	}
	shop, err := c.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: shop %s not found", errSkipNotification, shopID)
		}
		return uuid.Nil, err
	}
	return shop.OwnerUserID, nil
}

func formatCents(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func stringPtr(value string) *string {
	return &value
}
