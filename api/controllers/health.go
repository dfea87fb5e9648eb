package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/martincervantes/procurehub-backend/api/responses"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// Healthz reports liveness plus the state of the two backing stores. It
// answers 200 with per-dependency detail even when one is degraded so load
// balancers and dashboards read the same payload.
func Healthz(db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := map[string]string{
			"status": "ok",
			"db":     "ok",
			"redis":  "ok",
		}
		healthy := true

		if db == nil {
			status["db"] = "unconfigured"
			healthy = false
		} else if err := db.Ping(ctx); err != nil {
			status["db"] = "unreachable"
			healthy = false
		}

		if redis == nil {
			status["redis"] = "unconfigured"
			healthy = false
		} else if err := redis.Ping(ctx); err != nil {
			status["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
