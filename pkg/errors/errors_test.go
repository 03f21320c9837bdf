package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidInput, ErrServiceUnavail, ErrMisconfigured}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("disk full")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "disk full")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "key not found"}
	assert.Equal(t, "NOT_FOUND: key not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("storage key", "@GoMarket:products")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, `storage key "@GoMarket:products" not found`, err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("id is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnavailable_WrapsCauseAndSentinel(t *testing.T) {
	cause := errors.New("circuit breaker is open")
	err := Unavailable("storage", cause)

	assert.Equal(t, "SERVICE_UNAVAILABLE", err.Code)
	assert.Equal(t, "storage is unavailable", err.Message)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
}

func TestUnavailable_NilCause(t *testing.T) {
	err := Unavailable("kafka", nil)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
}

func TestMisconfigured(t *testing.T) {
	err := Misconfigured("PROVIDER_MISSING", "wire it")
	assert.Equal(t, "PROVIDER_MISSING", err.Code)
	assert.Equal(t, "PROVIDER_MISSING: wire it: misconfigured", err.Error())
	assert.True(t, errors.Is(err, ErrMisconfigured))
}

// --- HTTPStatus ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("outer: %w", NotFound("k", "v")), http.StatusNotFound},
		{"bare not found", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"bare invalid", ErrInvalidInput, http.StatusBadRequest},
		{"bare unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("???"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
