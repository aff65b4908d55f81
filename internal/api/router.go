package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP router for the admin API and WebSocket feed
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.GetHealth)
		r.Get("/usage", h.GetUsage)
		r.Post("/usage/reset", h.ResetUsage)
		r.Post("/usage/reset-daily", h.ResetDailyUsage)
		r.Get("/transcriptions", h.GetTranscriptions)
	})

	r.Get("/ws", h.HandleWebSocket)

	return r
}
