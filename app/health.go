package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthCheck reports whether one dependency is reachable.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

func (app *App) healthChecks() []healthCheck {
	checks := []healthCheck{{name: "postgres", check: app.DB.PingContext}}
	if app.Redis != nil {
		checks = append(checks, healthCheck{name: "redis", check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}})
	}
	if app.RankingModule != nil && app.RankingModule.QueueService != nil {
		checks = append(checks, healthCheck{name: "queue", check: app.RankingModule.QueueService.HealthCheck})
	}
	return checks
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(checks []healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				resp.Checks[c.name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
