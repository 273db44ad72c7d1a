package registry

import (
	"context"
	"errors"
	"time"

	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

func (r *Registry) authorize(adminCap *AdminCap) error {
	if adminCap == nil || adminCap.registryID != r.id || adminCap.id != r.adminCapID {
		return types.NewError(types.ErrUnauthorizedAdmin, "capability does not administer registry %s", r.id.Hex())
	}
	return nil
}

// SetConfigEpochExpirationDuration sets how many epochs a record must age
// before it can be deleted.
func (r *Registry) SetConfigEpochExpirationDuration(ctx context.Context, adminCap *AdminCap, duration uint64) error {
	return r.SetConfig(ctx, adminCap, ConfigEpochExpirationDuration, types.U64Value(duration))
}

// SetConfigRegistryManagedFunds switches between custody and direct transfer.
func (r *Registry) SetConfigRegistryManagedFunds(ctx context.Context, adminCap *AdminCap, managed bool) error {
	return r.SetConfig(ctx, adminCap, ConfigRegistryManagedFunds, types.BoolValue(managed))
}

// SetConfig upserts an arbitrary config value. Keys the registry interprets
// only accept values of their own kind.
func (r *Registry) SetConfig(ctx context.Context, adminCap *AdminCap, key string, value types.ConfigValue) error {
	if err := r.authorize(adminCap); err != nil {
		r.env.Logger.Warn("unauthorized config update", map[string]any{"registry": r.id.Hex(), "key": key})
		return err
	}
	if value.Kind() == types.KindInvalid {
		return types.NewError(types.ErrConfigTypeMismatch, "config %q: value holds no variant", key)
	}
	if want, ok := reservedKinds[key]; ok && value.Kind() != want {
		return types.NewError(types.ErrConfigTypeMismatch, "config %q takes %s, got %s", key, want, value.Kind())
	}

	if err := r.config.Upsert(ctx, key, value); err != nil {
		return types.WrapError(types.ErrStoreError, err, "write config %q", key)
	}

	r.env.Metrics.IncCounter(metrics.EventConfigUpdated, nil)
	r.env.Logger.Info("registry config updated", map[string]any{
		"registry": r.id.Hex(),
		"key":      key,
		"value":    value.String(),
	})
	return nil
}

// RemoveConfig deletes key, restoring its default if it has one. The bool
// reports whether the key was set.
func (r *Registry) RemoveConfig(ctx context.Context, adminCap *AdminCap, key string) (bool, error) {
	if err := r.authorize(adminCap); err != nil {
		return false, err
	}

	removed, err := r.config.Remove(ctx, key)
	if err != nil {
		return false, types.WrapError(types.ErrStoreError, err, "remove config %q", key)
	}

	if removed {
		r.env.Metrics.IncCounter(metrics.EventConfigUpdated, nil)
		r.env.Logger.Info("registry config removed", map[string]any{"registry": r.id.Hex(), "key": key})
	}
	return removed, nil
}

// WithdrawFromRegistry drains the whole custody balance of asset and returns
// it as a coin. The ledger entry is removed, so a second withdrawal with
// nothing received in between fails with REGISTRY_BALANCE_DOES_NOT_EXIST.
func (r *Registry) WithdrawFromRegistry(ctx context.Context, adminCap *AdminCap, asset types.AssetType) (types.Coin, error) {
	start := time.Now()
	labels := assetLabels(asset)
	defer func() {
		r.env.Metrics.ObserveLatency(metrics.OpWithdraw, time.Since(start), labels)
	}()

	if err := r.authorize(adminCap); err != nil {
		r.env.Logger.Warn("unauthorized withdrawal", map[string]any{"registry": r.id.Hex(), "asset": string(asset)})
		return types.Coin{}, err
	}

	amount, err := r.custody.Drain(ctx, asset)
	if errors.Is(err, store.ErrBalanceNotFound) {
		return types.Coin{}, types.NewError(types.ErrRegistryBalanceDoesNotExist,
			"registry %s holds no %s", r.id.Hex(), asset)
	}
	if err != nil {
		return types.Coin{}, types.WrapError(types.ErrStoreError, err, "drain %s", asset)
	}

	r.env.Metrics.IncCounter(metrics.EventWithdrawal, labels)
	r.env.Logger.Info("registry withdrawal", r.env.amountFields(asset, amount, map[string]any{"registry": r.id.Hex()}))
	return types.NewCoin(asset, amount), nil
}
