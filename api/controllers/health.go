package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/showcart-backend/api/responses"
	"github.com/angelmondragon/showcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

const envHeader = "X-Showcart-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports process liveness without touching any dependency.
func Healthz(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// Readyz pings the database and Redis before reporting ready, so the
// platform stops routing traffic when either backend is gone.
func Readyz(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]pinger{
			"database": dbP,
			"redis":    redisP,
		}
		for name, p := range checks {
			if p == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" not wired"))
				return
			}
			if err := p.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
