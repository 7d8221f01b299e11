package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/userbridge-backend/api/responses"
	"github.com/angelmondragon/userbridge-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Userbridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Userbridge-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := []struct {
			name   string
			pinger Pinger
		}{
			{name: "database", pinger: dbP},
			{name: "redis", pinger: redisP},
		}
		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				appErr := pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable").
					WithDetail("component", check.name)
				responses.WriteError(r.Context(), logg, w, appErr)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
