package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/config"
	"github.com/utafrali/gomarket/internal/storage"
	"github.com/utafrali/gomarket/internal/storage/breaker"
	"github.com/utafrali/gomarket/internal/storage/memory"
	"github.com/utafrali/gomarket/internal/storage/postgres"
	redisstore "github.com/utafrali/gomarket/internal/storage/redis"
	"github.com/utafrali/gomarket/internal/storage/sqlite"
	"github.com/utafrali/gomarket/pkg/database"
)

// Backend is the configured storage together with its health check and the
// resources to release on shutdown.
type Backend struct {
	storage.Storage
	Driver string

	ping    func(context.Context) error
	closers []func() error
}

// Ping checks the backend's connection.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the backend's connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenBackend connects to the storage driver named in cfg.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Driver: cfg.StorageDriver}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		m := memory.New()
		b.Storage, b.ping = m, m.Ping

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		registerCollector(collectors.NewDBStatsCollector(s.DB(), "gomarket"))
		b.Storage, b.ping = s, s.Ping
		b.closers = append(b.closers, s.Close)
		logger.Info("opened sqlite storage", slog.String("path", cfg.SQLitePath))

	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		r := redisstore.New(rdb, time.Duration(cfg.RedisTTLHours)*time.Hour)
		b.Storage, b.ping = r, r.Ping
		b.closers = append(b.closers, rdb.Close)
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)

	case config.DriverPostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPassword
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSLMode

		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := database.ApplySchema(ctx, pool, logger, postgres.Schema); err != nil {
			pool.Close()
			return nil, err
		}
		registerCollector(database.NewPoolStatsCollector(pool))
		b.Storage, b.ping = postgres.New(pool, logger), pool.Ping
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("db", cfg.PostgresDB),
		)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.BreakerEnabled {
		b.Storage = breaker.New(b.Storage, breaker.DefaultConfig(cfg.StorageDriver), logger)
	}

	return b, nil
}

// NewStore builds the cart store over b with the keys from cfg.
func NewStore(cfg *config.Config, b *Backend, logger *slog.Logger) *cart.Store {
	return cart.NewStore(b,
		cart.WithKeys(cart.Keys{Load: cfg.LoadKey, Save: cfg.StorageKey}),
		cart.WithLogger(logger),
	)
}

// registerCollector registers c with the default registry. A collector of
// the same shape from an earlier backend in this process is kept.
func registerCollector(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
	}
}
