package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

// Config keys read by the registry itself.
const (
	ConfigEpochExpirationDuration = "epoch_expiration_duration"
	ConfigRegistryManagedFunds    = "registry_managed_funds"
)

// Defaults applied when a config key is unset.
const (
	DefaultEpochExpirationDuration uint64 = 30
	DefaultRegistryManagedFunds           = false
)

// reservedKinds pins the value kind of keys the registry interprets.
var reservedKinds = map[string]types.ConfigKind{
	ConfigEpochExpirationDuration: types.KindU64,
	ConfigRegistryManagedFunds:    types.KindBool,
}

// Registry records payments under their composite key and optionally holds
// custody of received value per asset type. Its state lives in the
// backend's stores; all methods are safe for concurrent use.
//
// Transfers and queries never hold the registry lock. mu only serializes
// the custody overflow check with the credit that follows it.
type Registry struct {
	mu sync.Mutex

	id         types.Address
	name       string
	adminCapID string

	config  store.ConfigStore
	custody store.CustodyStore
	records store.RecordStore

	env Env
}

// ID is the registry identity. It is also the address funds are custodied at.
func (r *Registry) ID() types.Address {
	return r.id
}

func (r *Registry) Name() string {
	return r.name
}

func (r *Registry) AdminCapID() string {
	return r.adminCapID
}

// TryGetConfig returns the value stored under key, if any.
func (r *Registry) TryGetConfig(ctx context.Context, key string) (types.ConfigValue, bool, error) {
	v, ok, err := r.config.Get(ctx, key)
	if err != nil {
		return types.ConfigValue{}, false, types.WrapError(types.ErrStoreError, err, "read config %q", key)
	}
	return v, ok, nil
}

// ConfigKeys lists config keys, oldest write first.
func (r *Registry) ConfigKeys(ctx context.Context) ([]string, error) {
	keys, err := r.config.Keys(ctx)
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, err, "list config keys")
	}
	return keys, nil
}

// Balance returns the custodied amount of asset. The bool is false when no
// ledger entry exists.
func (r *Registry) Balance(ctx context.Context, asset types.AssetType) (uint64, bool, error) {
	v, err := r.custody.Balance(ctx, asset)
	if errors.Is(err, store.ErrBalanceNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, types.WrapError(types.ErrStoreError, err, "read %s balance", asset)
	}
	return v, true, nil
}

// Record looks up the record stored under key.
func (r *Registry) Record(ctx context.Context, key types.PaymentKey) (types.PaymentRecord, error) {
	rec, err := r.records.Get(ctx, key)
	if errors.Is(err, store.ErrRecordNotFound) {
		return types.PaymentRecord{}, types.NewError(types.ErrPaymentRecordDoesNotExist,
			"no payment record for nonce %q amount %d receiver %s asset %s",
			key.Nonce, key.PaymentAmount, key.Receiver.Hex(), key.Asset).WithData(key)
	}
	if err != nil {
		return types.PaymentRecord{}, types.WrapError(types.ErrStoreError, err, "read payment record")
	}
	return rec, nil
}

func (r *Registry) HasRecord(ctx context.Context, key types.PaymentKey) (bool, error) {
	_, err := r.Record(ctx, key)
	if errors.Is(err, types.ErrPaymentRecordDoesNotExist) {
		return false, nil
	}
	return err == nil, err
}

// u64Config reads a u64 policy, falling back to def when key is unset. A
// value of another kind is an error, never silently replaced by def.
func (r *Registry) u64Config(ctx context.Context, key string, def uint64) (uint64, error) {
	v, ok, err := r.TryGetConfig(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v.AsU64()
}

func (r *Registry) boolConfig(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := r.TryGetConfig(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v.AsBool()
}
