package endpoints

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

const healthTimeout = 3 * time.Second

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// RegisterStatusEndpoints registers the unauthenticated /healthz and
// /metrics endpoints.
func RegisterStatusEndpoints(s *server.Server) {
	var cache pinger
	if p, ok := s.Revoker.(pinger); ok {
		cache = p
	}
	s.Router.HandleFunc("/healthz", handleHealth(s.HealthStore, cache, s.Logger)).Methods("GET")
	s.Router.Handle("/metrics", s.Metrics.Handler()).Methods("GET")
}

// handleHealth checks the database and, when configured, Redis. Any
// failing check turns the response into a 503.
func handleHealth(healthStore store.HealthStore, cache pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
		if err := healthStore.CheckConnectivity(ctx); err != nil {
			logger.WarnContext(ctx, "database health check failed", "error", err)
			resp.Status = "error"
			resp.Checks["database"] = "unavailable"
		} else {
			resp.Checks["database"] = "ok"
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "redis health check failed", "error", err)
				resp.Status = "error"
				resp.Checks["redis"] = "unavailable"
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		respondWithJSON(w, code, resp)
	}
}
