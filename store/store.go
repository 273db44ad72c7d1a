// Package store persists the state of identity spaces and registries: name
// claims, payment records keyed by PaymentKey, custody balances and config.
// A Backend hands out the stores; every Kit or process opened on the same
// Backend sees the same state.
package store

import (
	"context"
	"errors"

	"github.com/vitwit/paymentkit/types"
)

var (
	ErrRecordExists    = errors.New("record already exists")
	ErrRecordNotFound  = errors.New("record not found")
	ErrNameClaimed     = errors.New("name already claimed")
	ErrClaimNotFound   = errors.New("name not claimed")
	ErrBalanceNotFound = errors.New("no balance entry")
	ErrBalanceOverflow = errors.New("balance would overflow")
)

// Claim is what a space stores for a claimed name.
type Claim struct {
	ID         types.Address `json:"id"`
	AdminCapID string        `json:"adminCapId"`
}

// ClaimStore holds the name claims of a single identity space.
type ClaimStore interface {
	// Claim stores c under name only if name is unclaimed. It returns
	// ErrNameClaimed otherwise. Claims are never released.
	Claim(ctx context.Context, name string, c Claim) error
	// Get returns ErrClaimNotFound when name is unclaimed.
	Get(ctx context.Context, name string) (Claim, error)
}

// RecordStore holds the PaymentRecords of a single registry.
type RecordStore interface {
	// Insert stores rec under key only if key is absent. It returns
	// ErrRecordExists otherwise, leaving the stored record untouched.
	Insert(ctx context.Context, key types.PaymentKey, rec types.PaymentRecord) error
	// Get returns ErrRecordNotFound when key is absent.
	Get(ctx context.Context, key types.PaymentKey) (types.PaymentRecord, error)
	// Delete returns ErrRecordNotFound when key is absent.
	Delete(ctx context.Context, key types.PaymentKey) error
}

// CustodyStore holds the custody balances of a single registry, one entry
// per asset type.
type CustodyStore interface {
	// Credit adds amount to the balance of asset, creating the entry if
	// needed, and returns the new balance. On ErrBalanceOverflow the
	// balance is left unchanged.
	Credit(ctx context.Context, asset types.AssetType, amount uint64) (uint64, error)
	// Balance returns ErrBalanceNotFound when asset has no entry.
	Balance(ctx context.Context, asset types.AssetType) (uint64, error)
	// Drain removes the entry of asset and returns what it held, or
	// ErrBalanceNotFound when there is none.
	Drain(ctx context.Context, asset types.AssetType) (uint64, error)
}

// ConfigStore is the insertion-ordered config map of a single registry.
type ConfigStore interface {
	// Upsert replaces any previous value and moves key to the end.
	Upsert(ctx context.Context, key string, value types.ConfigValue) error
	Get(ctx context.Context, key string) (types.ConfigValue, bool, error)
	// Remove reports whether key was set.
	Remove(ctx context.Context, key string) (bool, error)
	// Keys lists keys, oldest write first.
	Keys(ctx context.Context) ([]string, error)
}

// Backend opens the stores of spaces and registries by identity. Opening
// the same identity twice yields views of the same state.
type Backend interface {
	Claims(space types.Address) ClaimStore
	Records(registry types.Address) RecordStore
	Custody(registry types.Address) CustodyStore
	Config(registry types.Address) ConfigStore
}
