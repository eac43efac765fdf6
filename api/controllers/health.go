package controllers

import (
	"context"
	"net/http"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FoodDash-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datastore and cache both answer before reporting
// ready.
func HealthReady(cfg *config.Config, db, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-FoodDash-Env", cfg.App.Env)

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true

		if db == nil {
			checks["db"] = "unconfigured"
			healthy = false
		} else if err := db.Ping(ctx); err != nil {
			checks["db"] = err.Error()
			healthy = false
		}

		if cache == nil {
			checks["redis"] = "unconfigured"
			healthy = false
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}

		if !healthy {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
