package clients

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/vitwit/paymentkit/types"
)

// MemoryLedger is an in-process Transferer that credits receivers in a map.
// It backs tests and the example program.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[types.Address]map[types.AssetType]uint64
	failNext error
	count    int
}

var _ Transferer = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[types.Address]map[types.AssetType]uint64)}
}

func (l *MemoryLedger) Transfer(ctx context.Context, coin types.Coin, to types.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}

	byAsset := l.balances[to]
	sum, carry := bits.Add64(byAsset[coin.Asset], coin.Amount, 0)
	if carry != 0 {
		return fmt.Errorf("credit %s to %s: %w", coin, to, ErrLedgerOverflow)
	}
	if byAsset == nil {
		byAsset = make(map[types.AssetType]uint64)
		l.balances[to] = byAsset
	}
	byAsset[coin.Asset] = sum
	l.count++
	return nil
}

// BalanceOf returns what has been credited to owner in the given asset.
func (l *MemoryLedger) BalanceOf(owner types.Address, asset types.AssetType) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner][asset]
}

// Transfers returns the number of successful transfers.
func (l *MemoryLedger) Transfers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// FailNext makes the next Transfer return err without moving anything.
func (l *MemoryLedger) FailNext(err error) {
	l.mu.Lock()
	l.failNext = err
	l.mu.Unlock()
}
