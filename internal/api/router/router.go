package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kitewire/messaging-platform/internal/http/handlers"
	httpmiddleware "github.com/kitewire/messaging-platform/internal/http/middleware"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	MessagesHandler  *handlers.MessagesHandler
	ProviderWebhooks *handlers.ProviderWebhookHandler
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	// Public endpoints (webhooks, health checks)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metricsHandler)
	r.Post("/webhooks/provider/status/{tenantID}", cfg.ProviderWebhooks.DeliveryStatus)

	// Tenant-scoped API
	r.Group(func(api chi.Router) {
		api.Use(requireTenantID)
		api.Post("/api/messages", cfg.MessagesHandler.Create)
	})

	return r
}
