// Package health serves the liveness and Prometheus endpoints.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/opensky2cot/internal/connection"
	"github.com/rickgao/opensky2cot/internal/poller"
	"github.com/rickgao/opensky2cot/internal/version"
)

// TransportStatus reports the TAK connection.
type TransportStatus interface {
	State() connection.State
	Endpoint() string
}

// StatsSource reports poll loop counters.
type StatsSource interface {
	Stats() poller.Stats
}

// Response is the /health body.
type Response struct {
	Status     string     `json:"status"` // healthy or degraded
	Version    string     `json:"version"`
	Uptime     string     `json:"uptime"`
	Components Components `json:"components"`
}

// Components holds per-component health.
type Components struct {
	TAK    TAKStatus    `json:"tak"`
	Poller poller.Stats `json:"poller"`
}

// TAKStatus describes the TAK connection.
type TAKStatus struct {
	State    string `json:"state"`
	Endpoint string `json:"endpoint"`
}

// NewRouter builds the HTTP handler. metrics may be nil to omit /metrics.
func NewRouter(transport TransportStatus, stats StatsSource, metrics http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		resp := Response{
			Status:  "healthy",
			Version: version.Version,
			Uptime:  time.Since(started).Round(time.Second).String(),
			Components: Components{
				TAK: TAKStatus{
					State:    transport.State().String(),
					Endpoint: transport.Endpoint(),
				},
				Poller: stats.Stats(),
			},
		}
		if transport.State() != connection.Connected {
			resp.Status = "degraded"
		}

		// Always 200; degraded is reported in the body
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("encode health response", "error", err)
		}
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
