package events

import (
	"context"
	"sync"

	"github.com/vitwit/paymentkit/types"
)

// Handler processes a receipt published on a Bus.
type Handler func(types.PaymentReceipt)

type subscription struct {
	id      int64
	handler Handler
}

// Bus is a thread-safe in-memory Emitter with subscriptions. Handlers run
// synchronously on the emitting goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int64
}

var _ Emitter = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := b.subs[:0]
		for _, s := range b.subs {
			if s.id == id {
				continue
			}
			out = append(out, s)
		}
		b.subs = out
	}
}

func (b *Bus) Emit(_ context.Context, receipt types.PaymentReceipt) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(receipt)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recorder is a Bus subscriber that keeps every receipt it sees.
type Recorder struct {
	mu       sync.Mutex
	receipts []types.PaymentReceipt
}

func (r *Recorder) Handle(receipt types.PaymentReceipt) {
	r.mu.Lock()
	r.receipts = append(r.receipts, receipt)
	r.mu.Unlock()
}

func (r *Recorder) Emit(_ context.Context, receipt types.PaymentReceipt) {
	r.Handle(receipt)
}

// Receipts returns a copy of the recorded receipts.
func (r *Recorder) Receipts() []types.PaymentReceipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.PaymentReceipt(nil), r.receipts...)
}
