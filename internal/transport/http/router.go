// Package httptransport assembles the console's HTTP surface: middleware
// chain, session routes, the authenticated API and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"insureadmin/internal/platform/metrics"
	"insureadmin/internal/platform/middleware"
	"insureadmin/pkg/platform/httputil"
)

const readinessTimeout = 2 * time.Second

// Registrar mounts a bounded context's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck is one readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the router's collaborators.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Sessions guards every route in Protected.
	Sessions middleware.SessionResolver
	// Public routes carry their own credentials (login, logout).
	Public []Registrar
	// Protected routes require a console session.
	Protected []Registrar
	Checks    []HealthCheck
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter wires all endpoints under the shared middleware chain.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.AccessLog(logger, d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, logger))
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	for _, reg := range d.Public {
		reg.Register(r)
	}
	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireSession(d.Sessions, logger))
		for _, reg := range d.Protected {
			reg.Register(api)
		}
	})
	return r
}

func readiness(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
				results[c.Name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
