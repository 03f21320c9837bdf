// Package cart holds the shopping cart state for one device: the list of line
// items, the add/increment/decrement operations and their persistence.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/gomarket/internal/domain"
	"github.com/utafrali/gomarket/internal/storage"
	apperrors "github.com/utafrali/gomarket/pkg/errors"
	"github.com/utafrali/gomarket/pkg/logger"
	"github.com/utafrali/gomarket/pkg/tracing"
)

// ErrNotInitialized is returned by every operation on a nil Store or one
// built without storage.
var ErrNotInitialized = apperrors.Misconfigured(
	"CART_STORE_NOT_INITIALIZED",
	"cart store is not initialized",
)

// Option configures a Store.
type Option func(*Store)

// WithKeys sets the storage keys. Empty fields keep their defaults.
func WithKeys(k Keys) Option {
	return func(s *Store) {
		if k.Load != "" {
			s.keys.Load = k.Load
		}
		if k.Save != "" {
			s.keys.Save = k.Save
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store owns the cart. Mutations are serialised: each one applies its change,
// writes the resulting list to storage and notifies listeners before the next
// one starts, so storage always holds the latest list.
type Store struct {
	storage storage.Storage
	keys    Keys
	logger  *slog.Logger
	tracer  trace.Tracer

	// writeMu is held for a whole mutation, including persistence.
	writeMu sync.Mutex

	// mu guards products for readers.
	mu       sync.RWMutex
	products domain.Cart

	listeners listeners
}

// NewStore creates an empty store over st. Call Load to restore a saved cart.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		keys:     DefaultKeys(),
		logger:   slog.Default(),
		tracer:   tracing.Tracer("cart"),
		products: domain.Cart{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the storage keys in use.
func (s *Store) Keys() Keys {
	if s == nil {
		return Keys{}
	}
	return s.keys
}

// Products returns a copy of the current line items.
func (s *Store) Products() domain.Cart {
	if s == nil {
		return domain.Cart{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products.Clone()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	if s == nil || fn == nil {
		return func() {}
	}
	return s.listeners.add(fn)
}

// Load replaces the cart with the list saved under the load key. A missing
// key leaves the cart empty. Malformed data is returned as an error and the
// cart is left unchanged.
func (s *Store) Load(ctx context.Context) (err error) {
	if s == nil || s.storage == nil {
		return ErrNotInitialized
	}

	ctx, span := s.tracer.Start(ctx, "cart.Load",
		trace.WithAttributes(attribute.String("cart.key", s.keys.Load)))
	defer func() { endSpan(span, err) }()

	log := logger.WithContext(ctx, s.logger)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, err := s.storage.Get(ctx, s.keys.Load)
	if err != nil {
		if storage.IsNotFound(err) {
			log.DebugContext(ctx, "no saved cart", slog.String("key", s.keys.Load))
			operationsTotal.WithLabelValues(string(OpLoad), resultNoop).Inc()
			return nil
		}
		operationsTotal.WithLabelValues(string(OpLoad), resultError).Inc()
		return fmt.Errorf("load cart: %w", err)
	}

	var loaded domain.Cart
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		operationsTotal.WithLabelValues(string(OpLoad), resultError).Inc()
		return fmt.Errorf("decode cart: %w", err)
	}
	loaded = loaded.Clone()

	s.mu.Lock()
	s.products = loaded
	s.mu.Unlock()
	lineItems.Set(float64(len(loaded)))
	operationsTotal.WithLabelValues(string(OpLoad), resultChanged).Inc()

	log.InfoContext(ctx, "cart loaded",
		slog.String("key", s.keys.Load),
		slog.Int("line_items", len(loaded)),
	)

	s.listeners.notify(Change{Op: OpLoad, Products: loaded, CorrelationID: logger.CorrelationIDFromContext(ctx)})
	return nil
}

// AddToCart appends item with quantity 1. If a line item with the same ID is
// already present the cart is left as it is. The list is persisted either way.
// A price that is NaN or infinite is rejected with ErrInvalidInput.
func (s *Store) AddToCart(ctx context.Context, item domain.NewProduct) error {
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return apperrors.InvalidInput(fmt.Sprintf("price of %q must be a finite number", item.ID))
	}
	return s.mutate(ctx, OpAdd, "cart.AddToCart", item.ID, func(c domain.Cart) (domain.Cart, bool) {
		if c.FindIndex(item.ID) >= 0 {
			return c, false
		}
		return append(c, item.LineItem()), true
	})
}

// Increment raises the quantity of the line item with the given ID by one.
func (s *Store) Increment(ctx context.Context, id string) error {
	return s.mutate(ctx, OpIncrement, "cart.Increment", id, func(c domain.Cart) (domain.Cart, bool) {
		i := c.FindIndex(id)
		if i < 0 {
			return c, false
		}
		c[i].Quantity++
		return c, true
	})
}

// Decrement lowers the quantity of the line item with the given ID by one.
// There is no floor: the quantity can become zero or negative and the line
// item stays in the cart.
func (s *Store) Decrement(ctx context.Context, id string) error {
	return s.mutate(ctx, OpDecrement, "cart.Decrement", id, func(c domain.Cart) (domain.Cart, bool) {
		i := c.FindIndex(id)
		if i < 0 {
			return c, false
		}
		c[i].Quantity--
		return c, true
	})
}

// mutate applies fn to a copy of the cart, installs the result, persists
// exactly that result and then notifies listeners when something changed.
// A persistence failure is returned but the in-memory change stands.
func (s *Store) mutate(ctx context.Context, op Op, spanName, id string, fn func(domain.Cart) (domain.Cart, bool)) (err error) {
	if s == nil || s.storage == nil {
		return ErrNotInitialized
	}

	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("cart.product_id", id)))
	defer func() { endSpan(span, err) }()

	log := logger.WithContext(ctx, s.logger).With(slog.String("product_id", id))
	correlationID := logger.CorrelationIDFromContext(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Only writers replace products and they all hold writeMu, so reading
	// without mu here is safe.
	next, changed := fn(s.products.Clone())

	// Memory must never hold a cart that cannot be written.
	data, err := json.Marshal(next)
	if err != nil {
		operationsTotal.WithLabelValues(string(op), resultError).Inc()
		return fmt.Errorf("encode cart: %w", err)
	}

	if changed {
		s.mu.Lock()
		s.products = next
		s.mu.Unlock()
		lineItems.Set(float64(len(next)))

		if i := next.FindIndex(id); i >= 0 {
			log.InfoContext(ctx, "cart updated",
				slog.String("op", string(op)),
				slog.Int("quantity", next[i].Quantity),
			)
		}
	} else {
		log.DebugContext(ctx, "cart unchanged", slog.String("op", string(op)))
	}
	span.SetAttributes(attribute.Bool("cart.changed", changed))

	if err := s.persist(ctx, data); err != nil {
		log.ErrorContext(ctx, "failed to persist cart",
			slog.String("key", s.keys.Save),
			slog.String("error", err.Error()),
		)
		operationsTotal.WithLabelValues(string(op), resultError).Inc()
		if changed {
			s.listeners.notify(Change{Op: op, ProductID: id, Products: next, CorrelationID: correlationID})
		}
		return err
	}

	if changed {
		operationsTotal.WithLabelValues(string(op), resultChanged).Inc()
		s.listeners.notify(Change{Op: op, ProductID: id, Products: next, CorrelationID: correlationID})
	} else {
		operationsTotal.WithLabelValues(string(op), resultNoop).Inc()
	}
	return nil
}

func (s *Store) persist(ctx context.Context, data []byte) error {
	start := time.Now()
	err := s.storage.Set(ctx, s.keys.Save, string(data))
	persistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
