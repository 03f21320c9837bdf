package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/domain"
)

func TestOutputFormatter_TextTable(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: FormatText, Writer: &buf}

	err := f.Cart(domain.Cart{
		{ID: "p1", Title: "Widget", Price: 10, Quantity: 2},
		{ID: "p22", Title: "Gadget", Price: 2.5, Quantity: 1},
	})
	require.NoError(t, err)

	want := "ID   TITLE   PRICE  QTY\n" +
		"p1   Widget  10.00  2\n" +
		"p22  Gadget  2.50   1\n" +
		"items: 3  total: 22.50\n"
	assert.Equal(t, want, buf.String())
}

func TestOutputFormatter_ErrorKeepsAppErrorCode(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: FormatJSON, Writer: &buf}

	require.NoError(t, f.Error(cart.ErrNotInitialized))
	assert.Contains(t, buf.String(), `"code":"CART_STORE_NOT_INITIALIZED"`)

	buf.Reset()
	f.Format = FormatText
	require.NoError(t, f.Error(errors.New("disk full")))
	assert.Equal(t, "Error [ERROR]: disk full\n", buf.String())
}
