package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/config"
	"github.com/utafrali/gomarket/internal/event"
	handler "github.com/utafrali/gomarket/internal/handler/http"
	"github.com/utafrali/gomarket/pkg/health"
	pkgkafka "github.com/utafrali/gomarket/pkg/kafka"
	"github.com/utafrali/gomarket/pkg/tracing"
)

// App wires together all dependencies and runs the gomarket server.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	backend    *Backend
	store      *cart.Store
	kafka      *pkgkafka.Producer
	events     *event.Producer
	httpServer *http.Server

	stopTracer func(context.Context) error
	stopEvents context.CancelFunc
	eventsDone chan struct{}
}

// NewApp creates a new application instance, initializing all dependencies
// and loading the saved cart. A saved cart that cannot be read or decoded is
// returned as an error.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tcfg := tracing.DefaultConfig("gomarket")
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	stopTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		_ = stopTracer(context.Background())
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := NewStore(cfg, backend, logger)
	if err := store.Load(ctx); err != nil {
		_ = backend.Close()
		_ = stopTracer(context.Background())
		return nil, err
	}
	logger.Info("cart ready",
		slog.String("driver", backend.Driver),
		slog.String("load_key", cfg.LoadKey),
		slog.String("save_key", cfg.StorageKey),
		slog.Int("line_items", len(store.Products())),
	)

	healthHandler := health.NewHandler()
	healthHandler.RegisterPinger("storage", backend)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		backend:    backend,
		store:      store,
		stopTracer: stopTracer,
	}

	if cfg.KafkaEnabled {
		a.kafka = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.events = event.NewProducer(a.kafka, cfg.DeviceID, 64, logger)
		store.Subscribe(a.events.Listen)
		healthHandler.RegisterPinger("kafka", a.kafka)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	routerOpts := []handler.RouterOption{handler.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)}
	if cfg.TrustProxy {
		routerOpts = append(routerOpts, handler.WithTrustedProxy())
	}
	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler.NewRouter(store, healthHandler, logger, routerOpts...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Store returns the cart store.
func (a *App) Store() *cart.Store { return a.store }

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.httpServer.Handler }

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		_ = a.Shutdown()
		return fmt.Errorf("listen %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.events != nil {
		evCtx, cancel := context.WithCancel(context.Background())
		a.stopEvents = cancel
		a.eventsDone = make(chan struct{})
		go func() {
			defer close(a.eventsDone)
			_ = a.events.Run(evCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Queued cart events are flushed before the Kafka writer closes.
	if a.stopEvents != nil {
		a.stopEvents()
		<-a.eventsDone
		a.stopEvents = nil
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
		a.kafka = nil
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
	}

	if err := a.stopTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
