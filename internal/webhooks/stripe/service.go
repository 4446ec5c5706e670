// Package stripewebhook reconciles processor payment events with order
// state. Deliveries are at-least-once and can arrive out of order, so
// the handler leans entirely on the order service's idempotent
// transitions.
package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type orderConfirmer interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
}

type ServiceParams struct {
	Orders orderConfirmer
	Logger *logger.Logger
}

type Service struct {
	orders orderConfirmer
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order confirmer required")
	}
	return &Service{
		orders: params.Orders,
		logg:   params.Logger,
	}, nil
}

// HandleEvent routes one verified Stripe event. Returning an error makes
// the controller reject the delivery so Stripe redelivers; returning nil
// acknowledges it. Events the platform does not care about are
// acknowledged untouched.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.handlePaymentSucceeded(ctx, event.ID, &intent)
	default:
		return nil
	}
}

// handlePaymentSucceeded moves the referenced order to paid. An intent
// without an order id is acknowledged and logged: it was not created by
// this platform's checkout and redelivery cannot repair it.
func (s *Service) handlePaymentSucceeded(ctx context.Context, eventID string, intent *stripe.PaymentIntent) error {
	rawOrderID := intent.Metadata["order_id"]
	if rawOrderID == "" {
		s.warn(ctx, "payment intent carries no order id", map[string]any{
			"event_id":          eventID,
			"payment_intent_id": intent.ID,
		})
		return nil
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		s.warn(ctx, "payment intent carries an unparseable order id", map[string]any{
			"event_id":          eventID,
			"payment_intent_id": intent.ID,
			"order_id":          rawOrderID,
		})
		return nil
	}
	return s.orders.MarkPaid(ctx, orderID, intent.ID)
}

func (s *Service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
