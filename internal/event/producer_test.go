package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/domain"
	"github.com/utafrali/gomarket/internal/storage/memory"
	pkgkafka "github.com/utafrali/gomarket/pkg/kafka"
)

// --- Mock ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleChange() cart.Change {
	return cart.Change{
		Op:        cart.OpIncrement,
		ProductID: "p1",
		Products: domain.Cart{
			{ID: "p1", Title: "Widget", ImageURL: "u", Price: 10, Quantity: 2},
			{ID: "p2", Title: "Gadget", ImageURL: "g", Price: 2.5, Quantity: 1},
		},
	}
}

// --- Tests ---

func TestProducer_PublishCartUpdated(t *testing.T) {
	pub := new(mockPublisher)
	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	p := NewProducer(pub, "device-1", 4, discardLogger())
	require.NoError(t, p.PublishCartUpdated(context.Background(), sampleChange()))

	require.NotNil(t, captured)
	assert.Equal(t, EventTypeCartUpdated, captured.Type)
	assert.Equal(t, "device-1", captured.AggregateID)
	assert.Equal(t, AggregateTypeCart, captured.AggregateType)
	assert.Equal(t, "increment", captured.Attributes["op"])

	var data CartUpdatedData
	require.NoError(t, json.Unmarshal(captured.Data, &data))
	assert.Equal(t, "p1", data.ProductID)
	assert.Equal(t, 3, data.ItemCount)
	assert.InDelta(t, 22.5, data.Total, 1e-9)
	assert.Len(t, data.Products, 2)
	assert.Empty(t, captured.CorrelationID)
	pub.AssertExpectations(t)
}

func TestProducer_PublishCartUpdated_CarriesCorrelationID(t *testing.T) {
	pub := new(mockPublisher)
	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	change := sampleChange()
	change.CorrelationID = "corr-42"

	p := NewProducer(pub, "device-1", 4, discardLogger())
	require.NoError(t, p.PublishCartUpdated(context.Background(), change))

	require.NotNil(t, captured)
	assert.Equal(t, "corr-42", captured.CorrelationID)
}

func TestProducer_PublishCartUpdated_Error(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.Anything).Return(errors.New("broker down"))

	p := NewProducer(pub, "device-1", 4, discardLogger())
	err := p.PublishCartUpdated(context.Background(), sampleChange())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish cart.updated event: broker down")
}

func TestProducer_ListenDropsWhenFull(t *testing.T) {
	p := NewProducer(new(mockPublisher), "device-1", 1, discardLogger())

	p.Listen(sampleChange())
	p.Listen(sampleChange())

	assert.Len(t, p.queue, 1)
}

func TestProducer_RunPublishesStoreChanges(t *testing.T) {
	pub := new(mockPublisher)
	published := make(chan struct{}, 4)
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.Anything).
		Run(func(mock.Arguments) { published <- struct{}{} }).
		Return(nil)

	p := NewProducer(pub, "device-1", 8, discardLogger())
	store := cart.NewStore(memory.New(), cart.WithLogger(discardLogger()))
	store.Subscribe(p.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, store.AddToCart(ctx, domain.NewProduct{ID: "p1", Title: "Widget"}))
	require.NoError(t, store.AddToCart(ctx, domain.NewProduct{ID: "p1", Title: "Widget"}))
	require.NoError(t, store.Increment(ctx, "p1"))

	for i := 0; i < 2; i++ {
		select {
		case <-published:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for publish")
		}
	}

	cancel()
	require.NoError(t, <-done)
	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestProducer_RunDrainsOnShutdown(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.Anything).Return(errors.New("broker down"))

	p := NewProducer(pub, "device-1", 4, discardLogger())
	p.Listen(sampleChange())
	p.Listen(sampleChange())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	assert.Empty(t, p.queue)
	pub.AssertNumberOfCalls(t, "Publish", 2)
}
