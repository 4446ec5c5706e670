// Package payments issues Stripe payment intents for pending orders.
// The intent id is never written onto the order here; only the webhook
// reconciler does that once the charge is confirmed.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/internal/shops"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/redis"
)

const (
	idempotencyScope = "payment_intent"
	defaultCurrency  = "usd"
)

// Intent is the pair the client needs to confirm the payment.
type Intent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// Service issues payment intents.
type Service interface {
	IssueIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*Intent, error)
}

type service struct {
	ordersRepo orders.Repository
	shopsRepo  shops.Repository
	stripe     StripeIntentClient
	store      redis.IdempotencyStore
	ttl        time.Duration
}

// NewService builds the intent issuer. ttl bounds the per-order intent
// record and should match the pending order TTL.
func NewService(ordersRepo orders.Repository, shopsRepo shops.Repository, client StripeIntentClient, store redis.IdempotencyStore, ttl time.Duration) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if shopsRepo == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("intent record ttl must be positive")
	}
	return &service{
		ordersRepo: ordersRepo,
		shopsRepo:  shopsRepo,
		stripe:     client,
		store:      store,
		ttl:        ttl,
	}, nil
}

// IssueIntent creates a Stripe payment intent for the buyer's pending
// order, or returns the pair already issued for it. Issuance is
// at-least-once: losing the record race means a stray intent exists at
// Stripe, which is harmless because only confirmed payment moves the
// order.
func (s *service) IssueIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*Intent, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	key := s.store.IdempotencyKey(idempotencyScope, orderID.String())
	if stored, ok := s.lookup(ctx, key); ok {
		return stored, nil
	}

	shop, err := s.shopsRepo.FindByID(ctx, order.ShopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}

	created, err := s.stripe.Create(ctx, buildIntentParams(order, shop))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	intent := &Intent{PaymentIntentID: created.ID, ClientSecret: created.ClientSecret}
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode intent record")
	}
	set, err := s.store.SetNX(ctx, key, string(payload), s.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store intent record")
	}
	if !set {
		// A concurrent issue call won; hand back its pair so the client
		// confirms against a single intent.
		if stored, ok := s.lookup(ctx, key); ok {
			return stored, nil
		}
	}
	return intent, nil
}

// lookup returns the recorded pair for the key. Misses and unreadable
// records both read as absent; a corrupt record just costs one extra
// intent at Stripe.
func (s *service) lookup(ctx context.Context, key string) (*Intent, bool) {
	raw, err := s.store.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, false
	}
	if intent.PaymentIntentID == "" {
		return nil, false
	}
	return &intent, true
}

func buildIntentParams(order *models.Order, shop *models.Shop) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(order.TotalCents)),
		Currency: stripe.String(defaultCurrency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if shop.StripeAccountID != nil && *shop.StripeAccountID != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(*shop.StripeAccountID),
		}
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("buyer_id", order.BuyerID.String())
	params.AddMetadata("seller_user_id", shop.OwnerUserID.String())
	params.AddMetadata("seller_entity_id", shop.ID.String())
	if order.ProductID != nil {
		params.AddMetadata("product_id", order.ProductID.String())
	}
	params.AddMetadata("show_id", order.ShowID.String())
	params.AddMetadata("platform", order.Platform.String())
	return params
}
