package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidasana/citabot/internal/health"
	"github.com/vidasana/citabot/pkg/logger"
)

// NewRouter wires the webhook, health, and metrics endpoints.
func NewRouter(handler *Handler, checker *health.Checker) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.Middleware)

	r.Post("/whatsapp/webhook", handler.ServeWebhook)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		results := checker.Check(req.Context())

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
