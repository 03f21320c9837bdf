// Package storage defines the device-local key-value store the cart is
// persisted into, and its backends live in the subpackages.
package storage

import (
	"context"
	"errors"

	apperrors "github.com/utafrali/gomarket/pkg/errors"
)

// Storage is an asynchronous string key-value store. Get returns an error
// wrapping apperrors.ErrNotFound when the key has never been written.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// KeyNotFound builds the error backends return for an absent key.
func KeyNotFound(key string) error {
	return apperrors.NotFound("storage key", key)
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
