// Package breaker wraps a Storage backend in a circuit breaker so a failing
// remote store fails fast instead of stalling every cart mutation.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/gomarket/internal/storage"
	apperrors "github.com/utafrali/gomarket/pkg/errors"
)

// Config holds circuit breaker settings.
type Config struct {
	// Name identifies the breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig returns defaults for a storage breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gomarket",
		Name:      "storage_breaker_state",
		Help:      "Current state of the storage circuit breaker (0=closed, 1=half-open, 2=open).",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Storage decorates another Storage with a circuit breaker. An absent key
// counts as a success.
type Storage struct {
	next    storage.Storage
	name    string
	breaker *gobreaker.CircuitBreaker[string]
}

// New wraps next.
func New(next storage.Storage, cfg Config, logger *slog.Logger) *Storage {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || storage.IsNotFound(err)
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Storage{
		next:    next,
		name:    cfg.Name,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Get reads through the breaker.
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.breaker.Execute(func() (string, error) {
		return s.next.Get(ctx, key)
	})
	return v, s.translate(err)
}

// Set writes through the breaker.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	_, err := s.breaker.Execute(func() (string, error) {
		return "", s.next.Set(ctx, key, value)
	})
	return s.translate(err)
}

// Ping forwards to the wrapped storage when it supports it. It bypasses the
// breaker so readiness reflects the backend itself.
func (s *Storage) Ping(ctx context.Context) error {
	if p, ok := s.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State returns the breaker state.
func (s *Storage) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Storage) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Unavailable("storage "+s.name, err)
	}
	return err
}
