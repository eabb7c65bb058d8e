package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nordicfin/relion-bridge/internal/transport/httpapi/handler"
	"github.com/nordicfin/relion-bridge/internal/transport/httpapi/middleware"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	ImportHandler  *handler.ImportHandler
	HealthHandler  *handler.HealthHandler
	JWTMiddleware  func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit())

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	// Trigger surface (requires a service token)
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTMiddleware != nil {
			r.Use(cfg.JWTMiddleware)
		}

		if cfg.ImportHandler != nil {
			r.Post("/imports/file", cfg.ImportHandler.ImportFile)
			r.Post("/imports/event", cfg.ImportHandler.ImportEvent)
			r.Get("/imports/runs/{id}", cfg.ImportHandler.GetRun)
		}
	})

	return r
}
