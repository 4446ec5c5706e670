package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/api/responses"
	"github.com/angelmondragon/showcart-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/showcart-backend/internal/checkout"
	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/internal/payments"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type checkoutRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required,uuid4"`
	ShowID    uuid.UUID `json:"show_id" validate:"required,uuid4"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1"`
	Platform  string    `json:"platform,omitempty"`
}

type paymentIntentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required,uuid4"`
}

// Checkout handles a buyer's claim on a product during a live show. The
// claim either creates a pending order with stock held, or fails whole.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		platform := enums.CheckoutPlatformWeb
		if body.Platform != "" {
			platform, err = enums.ParseCheckoutPlatform(body.Platform)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse platform"))
				return
			}
		}

		order, err := svc.PlaceOrder(r.Context(), buyerID, checkoutsvc.PlaceOrderInput{
			ProductID: body.ProductID,
			ShowID:    body.ShowID,
			Quantity:  body.Quantity,
			Platform:  platform,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orders.FromModel(order))
	}
}

// PaymentIntent issues (or re-issues) the Stripe payment intent for a
// pending order and hands the client secret back to the buyer app.
func PaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.IssueIntent(r.Context(), buyerID, body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, intent)
	}
}
