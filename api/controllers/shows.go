package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/api/responses"
	"github.com/angelmondragon/showcart-backend/api/validators"
	"github.com/angelmondragon/showcart-backend/internal/products"
	"github.com/angelmondragon/showcart-backend/internal/shows"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type createShowRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=120"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ShowCreate schedules a new show for the caller's shop.
func ShowCreate(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shows service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createShowRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Create(r.Context(), shopID, shows.CreateShowInput{
			Title:       validators.SanitizeString(body.Title, 120),
			ScheduledAt: body.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, shows.FromModel(show))
	}
}

// ShowStart flips a scheduled show live.
func ShowStart(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return showTransition(svc, logg, func(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error) {
		return svc.Start(ctx, shopID, showID)
	})
}

// ShowEnd closes a live show.
func ShowEnd(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return showTransition(svc, logg, func(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error) {
		return svc.End(ctx, shopID, showID)
	})
}

func showTransition(svc shows.Service, logg *logger.Logger, move func(context.Context, uuid.UUID, uuid.UUID) (*models.Show, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shows service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		showID, err := parseUUIDParam(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := move(r.Context(), shopID, showID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shows.FromModel(show))
	}
}

// ShowGet returns one show. Buyers use it to follow a live session.
func ShowGet(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shows service unavailable"))
			return
		}

		showID, err := parseUUIDParam(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Get(r.Context(), showID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shows.FromModel(show))
	}
}

// ShowProducts lists the products attached to a show.
func ShowProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		showID, err := parseUUIDParam(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByShow(r.Context(), showID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": products.FromModels(rows)})
	}
}
