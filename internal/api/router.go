package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bert4lyf/chit-chat/internal/api/middleware"
	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/chat"
	"github.com/bert4lyf/chit-chat/internal/handlers"
	"github.com/bert4lyf/chit-chat/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, svc *chat.Service, b *bus.Bus, st store.Store) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - rooms are joined from shared links, any origin may call
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(svc, b, st)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Room lifecycle and messaging
	r.Post("/room", h.CreateRoom)
	r.Get("/room/{id}/ttl", h.GetRoomTTL)
	r.Get("/room/{id}/messages", h.GetRoomMessages)
	r.Post("/room/{id}/messages", h.PostMessage)
	r.Delete("/room/{id}", h.DestroyRoom)

	// Real-time events (SSE)
	r.Get("/room/{id}/events", h.StreamEvents)

	return r
}
