package cart

import (
	"context"

	apperrors "github.com/utafrali/gomarket/pkg/errors"
)

type ctxKey struct{}

// ErrNoProvider is returned when a consumer looks up the store in a context
// that no provider populated.
var ErrNoProvider = apperrors.Misconfigured(
	"CART_PROVIDER_MISSING",
	"cart store must be used within a cart provider",
)

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, store)
}

// FromContext returns the store attached by NewContext, or ErrNoProvider.
func FromContext(ctx context.Context) (*Store, error) {
	if s, ok := ctx.Value(ctxKey{}).(*Store); ok && s != nil {
		return s, nil
	}
	return nil, ErrNoProvider
}

// MustFromContext is like FromContext but panics with ErrNoProvider.
func MustFromContext(ctx context.Context) *Store {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
