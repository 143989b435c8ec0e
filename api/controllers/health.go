package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/marlink/accountant/api/responses"
	"github.com/marlink/accountant/pkg/config"
	"github.com/marlink/accountant/pkg/logger"
)

const readyProbeTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Accountant-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the DB and Redis. A nil dependency is reported as
// skipped rather than failing readiness; the cron worker runs without Redis
// in dev.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Accountant-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true
		for name, p := range map[string]pinger{"db": dbPinger, "redis": redisPinger} {
			if p == nil {
				checks[name] = "skipped"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness probe failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		status := http.StatusOK
		result := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			result = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": result,
			"checks": checks,
		})
	}
}
