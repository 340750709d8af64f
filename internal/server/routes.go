package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WebhookPath is where Magic Hour delivers notifications.
const WebhookPath = "/webhooks/magic-hour"

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestIDMiddleware,
		middleware.RequestID,
		middleware.RealIP,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	r.Get("/health", h.Health)
	r.Post(WebhookPath, h.ReceiveWebhook)
	r.Get("/events", h.ListEvents)

	r.Get("/projects/{id}/events/latest", h.LatestEvent)
	r.Delete("/projects/{id}/events", h.DeleteEvent)

	return r
}
