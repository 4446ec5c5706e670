package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/api/responses"
	"github.com/angelmondragon/showcart-backend/api/validators"
	"github.com/angelmondragon/showcart-backend/internal/products"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type createProductRequest struct {
	ShowID      *uuid.UUID `json:"show_id,omitempty" validate:"omitempty,uuid4"`
	Name        string     `json:"name" validate:"required,min=2,max=160"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Tags        []string   `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=40"`
	PriceCents  int        `json:"price_cents" validate:"min=0"`
	Quantity    int        `json:"quantity" validate:"min=0"`
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// ProductCreate lists a product under the caller's shop, optionally
// pinned to one of its shows.
func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var description *string
		if body.Description != nil {
			cleaned := validators.SanitizeString(*body.Description, 2000)
			if cleaned != "" {
				description = &cleaned
			}
		}
		tags := make([]string, 0, len(body.Tags))
		for _, tag := range body.Tags {
			if cleaned := validators.SanitizeString(tag, 40); cleaned != "" {
				tags = append(tags, cleaned)
			}
		}

		product, err := svc.Create(r.Context(), shopID, products.CreateProductInput{
			ShowID:      body.ShowID,
			Name:        validators.SanitizeString(body.Name, 160),
			Description: description,
			Tags:        tags,
			PriceCents:  body.PriceCents,
			Quantity:    body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, products.FromModel(product))
	}
}

// ProductRestock adds stock to a listing and revives it if it had sold
// out.
func ProductRestock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body restockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Restock(r.Context(), shopID, productID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products.FromModel(product))
	}
}

// ProductActivate puts a listing back on the shelf.
func ProductActivate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return shelfAction(svc, logg, func(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error) {
		return svc.Activate(ctx, shopID, productID)
	})
}

// ProductDeactivate pulls a listing from sale without touching stock.
func ProductDeactivate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return shelfAction(svc, logg, func(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error) {
		return svc.Deactivate(ctx, shopID, productID)
	})
}

func shelfAction(svc products.Service, logg *logger.Logger, act func(context.Context, uuid.UUID, uuid.UUID) (*models.Product, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := act(r.Context(), shopID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products.FromModel(product))
	}
}
