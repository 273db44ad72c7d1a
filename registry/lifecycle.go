package registry

import (
	"context"
	"errors"
	"math/bits"
	"time"

	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

// DeletePaymentRecord removes the record under key once it has expired,
// i.e. once the current epoch reaches the record epoch plus the
// epoch_expiration_duration policy. Anyone may call it.
func (r *Registry) DeletePaymentRecord(ctx context.Context, key types.PaymentKey) error {
	start := time.Now()
	labels := assetLabels(key.Asset)
	defer func() {
		r.env.Metrics.ObserveLatency(metrics.OpDeleteRecord, time.Since(start), labels)
	}()

	epoch, err := r.deleteExpired(ctx, key)
	fields := map[string]any{
		"registry": r.id.Hex(),
		"nonce":    key.Nonce,
		"asset":    string(key.Asset),
		"epoch":    epoch,
	}
	if err != nil {
		fields["error"] = err
		r.env.Logger.Debug("payment record not deleted", fields)
		return err
	}

	r.env.Metrics.IncCounter(metrics.EventRecordDeleted, labels)
	r.env.Logger.Info("payment record deleted", fields)
	return nil
}

func (r *Registry) deleteExpired(ctx context.Context, key types.PaymentKey) (uint64, error) {
	rec, err := r.Record(ctx, key)
	if err != nil {
		return 0, err
	}

	duration, err := r.u64Config(ctx, ConfigEpochExpirationDuration, DefaultEpochExpirationDuration)
	if err != nil {
		return 0, err
	}

	current := r.env.Clock.CurrentEpoch()
	expiration, carry := bits.Add64(rec.EpochAtTimeOfRecord, duration, 0)
	if carry != 0 || current < expiration {
		err := types.NewError(types.ErrPaymentRecordHasNotExpired,
			"record from epoch %d expires after %d epochs; current epoch is %d",
			rec.EpochAtTimeOfRecord, duration, current)
		if carry == 0 {
			err = err.WithData(map[string]uint64{"expiresAtEpoch": expiration, "currentEpoch": current})
		}
		return current, err
	}

	// a concurrent delete may win between the read and here
	if err := r.records.Delete(ctx, key); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return current, types.NewError(types.ErrPaymentRecordDoesNotExist, "payment record was already deleted").WithData(key)
		}
		return current, types.WrapError(types.ErrStoreError, err, "delete payment record")
	}
	return current, nil
}
