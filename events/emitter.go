// Package events delivers payment receipts to interested parties. Delivery
// is fire-and-forget: an emitter never fails the payment that produced it.
package events

import (
	"context"

	"github.com/vitwit/paymentkit/types"
)

// Emitter receives every receipt a registry or namespace produces.
type Emitter interface {
	Emit(ctx context.Context, receipt types.PaymentReceipt)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, receipt types.PaymentReceipt)

func (f EmitterFunc) Emit(ctx context.Context, receipt types.PaymentReceipt) {
	f(ctx, receipt)
}

// Noop drops every receipt.
type Noop struct{}

func (Noop) Emit(context.Context, types.PaymentReceipt) {}

// Multi fans a receipt out to each emitter in order.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, receipt types.PaymentReceipt) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, receipt)
		}
	}
}

// Combine returns a single Emitter over the non-nil inputs.
func Combine(emitters ...Emitter) Emitter {
	out := make(Multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return Noop{}
	case 1:
		return out[0]
	default:
		return out
	}
}
