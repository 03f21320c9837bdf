package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/config"
	"github.com/utafrali/gomarket/internal/domain"
	"github.com/utafrali/gomarket/internal/storage/breaker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, overrides map[string]string) *config.Config {
	t.Helper()
	env := map[string]string{
		"STORAGE_DRIVER": "sqlite",
		"SQLITE_PATH":    filepath.Join(t.TempDir(), "gomarket.db"),
		"KAFKA_ENABLED":  "false",
		"OTEL_ENABLED":   "false",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := config.LoadWithOverrides(env)
	require.NoError(t, err)
	return cfg
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := testConfig(t, map[string]string{"STORAGE_DRIVER": "memory"})

	b, err := OpenBackend(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "memory", b.Driver)
	assert.NoError(t, b.Ping(context.Background()))
}

func TestOpenBackend_BreakerWrapsStorage(t *testing.T) {
	cfg := testConfig(t, map[string]string{"STORAGE_BREAKER_ENABLED": "true"})

	b, err := OpenBackend(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Storage.(*breaker.Storage)
	assert.True(t, ok)
	assert.NoError(t, b.Ping(context.Background()))
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"STORAGE_DRIVER": "redis",
		"REDIS_ADDR":     "127.0.0.1:1",
	})

	_, err := OpenBackend(context.Background(), cfg, testLogger())
	assert.ErrorContains(t, err, "connect to redis")
}

func TestNewApp_RestoresSavedCart(t *testing.T) {
	cfg := testConfig(t, nil)
	ctx := context.Background()

	first, err := NewApp(ctx, cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Store().AddToCart(ctx, domain.NewProduct{ID: "p1", Title: "Widget", Price: 10}))
	require.NoError(t, first.Store().Increment(ctx, "p1"))
	require.NoError(t, first.Shutdown())

	second, err := NewApp(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer second.Shutdown()

	products := second.Store().Products()
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].Quantity)
}

func TestNewApp_LegacyLoadKeyStartsEmpty(t *testing.T) {
	cfg := testConfig(t, map[string]string{"CART_LOAD_KEY": "products"})
	ctx := context.Background()

	first, err := NewApp(ctx, cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Store().AddToCart(ctx, domain.NewProduct{ID: "p1", Title: "Widget"}))
	require.NoError(t, first.Shutdown())

	second, err := NewApp(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer second.Shutdown()

	assert.Equal(t, cart.LegacyKeys(), second.Store().Keys())
	assert.Empty(t, second.Store().Products())
}

func TestNewApp_MalformedSavedCart(t *testing.T) {
	cfg := testConfig(t, nil)
	ctx := context.Background()

	b, err := OpenBackend(ctx, cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, cfg.StorageKey, "not json"))
	require.NoError(t, b.Close())

	_, err = NewApp(ctx, cfg, testLogger())
	assert.ErrorContains(t, err, "decode cart")
}

func TestApp_Handler(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t, nil), testLogger())
	require.NoError(t, err)
	defer a.Shutdown()

	body := strings.NewReader(`{"id":"p1","title":"Widget","image_url":"u","price":10}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage"`)
}

func TestApp_ServeUntilCanceled(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t, nil), testLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/v1/cart"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	var env struct {
		Data struct {
			Products []domain.Product `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Empty(t, env.Data.Products)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
