package cart

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/gomarket/internal/storage/memory"
	apperrors "github.com/utafrali/gomarket/pkg/errors"
)

func TestFromContext_WithProvider(t *testing.T) {
	s := NewStore(memory.New())
	ctx := NewContext(context.Background(), s)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Same(t, s, MustFromContext(ctx))
}

func TestFromContext_WithoutProvider(t *testing.T) {
	_, err := FromContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProvider))
	assert.ErrorIs(t, err, apperrors.ErrMisconfigured)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CART_PROVIDER_MISSING", appErr.Code)
	assert.Equal(t, "cart store must be used within a cart provider", appErr.Message)
}

func TestFromContext_NilStore(t *testing.T) {
	ctx := NewContext(context.Background(), nil)
	_, err := FromContext(ctx)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestMustFromContext_Panics(t *testing.T) {
	assert.PanicsWithError(t, ErrNoProvider.Error(), func() {
		MustFromContext(context.Background())
	})
}
