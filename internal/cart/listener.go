package cart

import (
	"sync"

	"github.com/utafrali/gomarket/internal/domain"
)

// Op names the operation that produced a Change.
type Op string

const (
	OpLoad      Op = "load"
	OpAdd       Op = "add"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
)

// Change describes a state change. Products is a private copy of the cart
// after the change. ProductID is empty for OpLoad. CorrelationID is the
// correlation ID of the context the operation ran with, if any.
type Change struct {
	Op            Op
	ProductID     string
	Products      domain.Cart
	CorrelationID string
}

// Listener is called synchronously after each change, in subscription order.
// It must not call the store's mutating methods.
type Listener func(Change)

type listeners struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

type subscription struct {
	id uint64
	fn Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.subs {
		if s.id == id {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *listeners) notify(c Change) {
	l.mu.Lock()
	subs := make([]subscription, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		s.fn(Change{Op: c.Op, ProductID: c.ProductID, Products: c.Products.Clone()})
	}
}
