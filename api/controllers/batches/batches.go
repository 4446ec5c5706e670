package batches

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/api/middleware"
	"github.com/angelmondragon/showcart-backend/api/responses"
	"github.com/angelmondragon/showcart-backend/api/validators"
	internalbatches "github.com/angelmondragon/showcart-backend/internal/batches"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/pagination"
)

type batchListResponse struct {
	Batches    []internalbatches.BatchDTO `json:"batches"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// List returns the caller's batches: a buyer's open tabs per shop and
// show, or every batch building against the seller's shop.
func List(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		viewer, err := viewerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), viewer, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batchListResponse{
			Batches:    internalbatches.FromModels(list.Batches),
			NextCursor: list.NextCursor,
		})
	}
}

// Detail returns one batch with its orders preloaded.
func Detail(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		viewer, err := viewerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := parseBatchID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.Get(r.Context(), viewer, batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalbatches.FromModel(batch))
	}
}

// CheckoutComplete is the buyer declaring they are done shopping: the
// batch closes to new orders and moves to ready.
func CheckoutComplete(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		viewer, err := viewerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := parseBatchID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkReady(r.Context(), viewer.UserID, batchID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": string(enums.BatchStatusReady)})
	}
}

// Complete is the seller closing out a ready batch after fulfillment.
func Complete(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		viewer, err := viewerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := parseBatchID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), viewer, batchID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": string(enums.BatchStatusCompleted)})
	}
}

func viewerFromRequest(r *http.Request) (internalbatches.Viewer, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return internalbatches.Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return internalbatches.Viewer{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalbatches.Viewer{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "parse role")
	}

	viewer := internalbatches.Viewer{UserID: userID, Role: role}
	if rawShop := middleware.ShopIDFromContext(r.Context()); rawShop != "" {
		shopID, err := uuid.Parse(rawShop)
		if err != nil {
			return internalbatches.Viewer{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop id")
		}
		viewer.ShopID = &shopID
	}
	return viewer, nil
}

func parseBatchID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "batchId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}
	batchID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id")
	}
	return batchID, nil
}
