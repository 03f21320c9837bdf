package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/domain"
	pkgkafka "github.com/utafrali/gomarket/pkg/kafka"
)

// TopicCartUpdated is the topic every cart change is published to.
const TopicCartUpdated = "gomarket.cart.updated"

// Envelope constants.
const (
	EventTypeCartUpdated = "cart.updated"
	AggregateTypeCart    = "cart"
	SourceGoMarket       = "gomarket"
)

const publishTimeout = 5 * time.Second

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	DeviceID  string      `json:"device_id"`
	Op        string      `json:"op"`
	ProductID string      `json:"product_id,omitempty"`
	Products  domain.Cart `json:"products"`
	ItemCount int         `json:"item_count"`
	Total     float64     `json:"total"`
}

// Publisher is the subset of *pkgkafka.Producer the event producer uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer turns cart changes into cart.updated events. Listen only queues
// the change, so a slow broker never holds up a cart mutation; Run does the
// publishing.
type Producer struct {
	pub      Publisher
	deviceID string
	logger   *slog.Logger
	queue    chan cart.Change
}

// NewProducer creates a producer that keeps up to buffer pending changes.
func NewProducer(pub Publisher, deviceID string, buffer int, logger *slog.Logger) *Producer {
	if buffer <= 0 {
		buffer = 64
	}
	return &Producer{
		pub:      pub,
		deviceID: deviceID,
		logger:   logger,
		queue:    make(chan cart.Change, buffer),
	}
}

// Listen is a cart.Listener. When the queue is full the change is dropped.
func (p *Producer) Listen(c cart.Change) {
	select {
	case p.queue <- c:
	default:
		p.logger.Warn("cart event queue full, dropping change",
			slog.String("op", string(c.Op)),
			slog.String("product_id", c.ProductID),
		)
	}
}

// Run publishes queued changes until ctx is canceled, then publishes what is
// still queued before returning.
func (p *Producer) Run(ctx context.Context) error {
	for {
		select {
		case c := <-p.queue:
			p.publishLogged(ctx, c)
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *Producer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case c := <-p.queue:
			p.publishLogged(ctx, c)
		default:
			return
		}
	}
}

func (p *Producer) publishLogged(ctx context.Context, c cart.Change) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.PublishCartUpdated(ctx, c); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish cart event",
			slog.String("op", string(c.Op)),
			slog.String("error", err.Error()),
		)
	}
}

// PublishCartUpdated publishes c immediately.
func (p *Producer) PublishCartUpdated(ctx context.Context, c cart.Change) error {
	products := c.Products
	if products == nil {
		products = domain.Cart{}
	}
	data := CartUpdatedData{
		DeviceID:  p.deviceID,
		Op:        string(c.Op),
		ProductID: c.ProductID,
		Products:  products,
		ItemCount: products.ItemCount(),
		Total:     products.Total(),
	}

	opts := []pkgkafka.Option{pkgkafka.WithAttribute("op", string(c.Op))}
	if c.CorrelationID != "" {
		opts = append(opts, pkgkafka.WithCorrelationID(c.CorrelationID))
	}
	event, err := pkgkafka.NewEvent(EventTypeCartUpdated,
		pkgkafka.Aggregate{ID: p.deviceID, Type: AggregateTypeCart},
		SourceGoMarket, data, opts...)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.pub.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("op", string(c.Op)),
		slog.Int("item_count", data.ItemCount),
	)
	return nil
}
