package http

import (
	"net/http"

	"fcc-shorturl/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions toggles optional routes
type RouterOptions struct {
	EnableMetrics bool
}

// NewRouter wires the handler into a chi router.
//
// EXECUTION ORDER (outside-in):
// Request → Recovery → RequestID → Logging → Metrics → CORS → Handler
func NewRouter(h *Handler, log *logger.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(log.Logger),
		RequestIDMiddleware,
		LoggingMiddleware(log),
		MetricsMiddleware,
		CORSMiddleware,
	)

	r.Post("/api/shorturl", h.CreateShortURL)
	r.Get("/api/shorturl/{id}", h.RedirectShortURL)

	r.Get("/health/live", h.HealthCheck)
	r.Get("/health/ready", h.ReadinessCheck)

	if opts.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})

	return r
}
