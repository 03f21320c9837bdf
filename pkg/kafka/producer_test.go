package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// --- Event tests ---

var deviceCart = Aggregate{ID: "device-1", Type: "cart"}

func TestNewEvent_Fields(t *testing.T) {
	type cartData struct {
		ItemCount int `json:"item_count"`
	}

	event, err := NewEvent("cart.updated", deviceCart, "gomarket", cartData{ItemCount: 3},
		WithCorrelationID("corr-1"), WithAttribute("op", "increment"))
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "cart.updated", event.Type)
	assert.Equal(t, "device-1", event.AggregateID)
	assert.Equal(t, "cart", event.AggregateType)
	assert.Equal(t, "gomarket", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, map[string]string{"op": "increment"}, event.Attributes)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got cartData
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, 3, got.ItemCount)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("test.event", deviceCart, "test", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode test.event payload")
}

func TestEvent_HeadersSortAttributes(t *testing.T) {
	event, err := NewEvent("cart.updated", deviceCart, "gomarket", nil,
		WithAttribute("op", "add"), WithAttribute("device", "d1"))
	require.NoError(t, err)

	var keys []string
	for _, h := range event.Headers() {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"event_type", "source", "attr.device", "attr.op"}, keys)
}

// --- Producer tests ---

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"b1:9092", "b2:9092"})
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)
}

func TestProducer_Publish_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, err := NewEvent("cart.updated", deviceCart, "gomarket", map[string]int{"n": 1},
		WithCorrelationID("corr-9"), WithAttribute("op", "add"))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "gomarket.cart.updated", event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "gomarket.cart.updated", msg.Topic)
	assert.Equal(t, "device-1", string(msg.Key))
	assert.Equal(t, "cart.updated", headerValue(msg, "event_type"))
	assert.Equal(t, "gomarket", headerValue(msg, "source"))
	assert.Equal(t, "corr-9", headerValue(msg, "correlation_id"))
	assert.Equal(t, "add", headerValue(msg, "attr.op"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, err := NewEvent("cart.updated", deviceCart, "gomarket", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "gomarket.cart.updated", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to gomarket.cart.updated")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducer_CreatesInstance(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:9092"}), discardLogger())
	require.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
