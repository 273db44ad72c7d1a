package clients

import (
	"context"

	"github.com/vitwit/paymentkit/types"
)

// Transferer moves a coin to a receiver. A successful Transfer is final; a
// failed one must leave no value moved.
type Transferer interface {
	Transfer(ctx context.Context, coin types.Coin, to types.Address) error
}

// TransferFunc adapts a plain function to Transferer.
type TransferFunc func(ctx context.Context, coin types.Coin, to types.Address) error

func (f TransferFunc) Transfer(ctx context.Context, coin types.Coin, to types.Address) error {
	return f(ctx, coin, to)
}

// Clock reports the current epoch and wall time in milliseconds.
type Clock interface {
	CurrentEpoch() uint64
	NowMs() uint64
}
