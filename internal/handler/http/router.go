package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/pkg/health"
	"github.com/utafrali/gomarket/pkg/middleware"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	rateLimitRPS   float64
	rateLimitBurst int
	trustProxy     bool
}

// WithRateLimit limits each client to rps cart requests per second after a
// burst. Every cart mutation is a storage write.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(c *routerConfig) {
		c.rateLimitRPS = rps
		c.rateLimitBurst = burst
	}
}

// WithTrustedProxy takes the client address from X-Forwarded-For and
// X-Real-IP. Only use it when every request arrives through a proxy that
// sets those headers.
func WithTrustedProxy() RouterOption {
	return func(c *routerConfig) { c.trustProxy = true }
}

// NewRouter creates a chi router with all gomarket routes registered. The
// cart routes sit under the Provide scope for store.
func NewRouter(store *cart.Store, healthHandler *health.Handler, logger *slog.Logger, opts ...RouterOption) http.Handler {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	// Global middleware
	if cfg.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing("gomarket"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(logger)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.rateLimitRPS, cfg.rateLimitBurst, logger))
		r.Use(ContentTypeJSON)
		r.Use(Provide(store))

		r.Get("/", cartHandler.GetCart)
		r.Post("/items", cartHandler.AddItem)
		r.Post("/items/{id}/increment", cartHandler.Increment)
		r.Post("/items/{id}/decrement", cartHandler.Decrement)
	})

	return r
}
