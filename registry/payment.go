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

// ProcessEphemeral verifies a payment, moves the coin to the receiver and
// emits a receipt. Nothing is recorded, so identical calls all succeed.
func (n *Namespace) ProcessEphemeral(ctx context.Context, p types.EphemeralPayment) (types.PaymentReceipt, error) {
	env := n.env
	start := time.Now()
	labels := assetLabels(p.Coin.Asset)
	defer func() {
		env.Metrics.ObserveLatency(metrics.OpProcessEphemeral, time.Since(start), labels)
	}()

	if err := verifyPayment(p.Nonce, p.PaymentAmount, p.Coin); err != nil {
		env.rejected("ephemeral payment rejected", p.Nonce, p.Coin, err)
		return types.PaymentReceipt{}, err
	}

	receipt := types.PaymentReceipt{
		PaymentType:   types.EphemeralPaymentType(),
		Nonce:         p.Nonce,
		PaymentAmount: p.PaymentAmount,
		Receiver:      p.Receiver,
		AssetTypeName: string(p.Coin.Asset),
		TimestampMs:   env.Clock.NowMs(),
	}

	if err := env.Transferer.Transfer(ctx, p.Coin, p.Receiver); err != nil {
		err = types.WrapError(types.ErrTransferFailed, err, "transfer %s to %s", p.Coin, p.Receiver.Hex())
		env.rejected("ephemeral payment transfer failed", p.Nonce, p.Coin, err)
		return types.PaymentReceipt{}, err
	}

	env.processed("ephemeral payment processed", receipt, p.Coin, nil)
	env.Emitter.Emit(ctx, receipt)
	return receipt, nil
}

// ProcessInRegistry records a payment under its composite key and either
// custodies the coin or transfers it to the receiver, depending on the
// registry_managed_funds policy.
//
// With managed funds the receiver must be nil or the registry itself. Without
// them a receiver is required. Every check, including the duplicate check,
// runs before value moves; a failed transfer or credit releases the record
// again.
func (r *Registry) ProcessInRegistry(ctx context.Context, p types.RegistryPayment) (types.PaymentReceipt, error) {
	start := time.Now()
	labels := assetLabels(p.Coin.Asset)
	defer func() {
		r.env.Metrics.ObserveLatency(metrics.OpProcessRegistry, time.Since(start), labels)
	}()

	receipt, err := r.process(ctx, p)
	if err != nil {
		r.env.rejected("registry payment rejected", p.Nonce, p.Coin, err, "registry", r.id.Hex())
		return types.PaymentReceipt{}, err
	}

	r.env.processed("registry payment processed", receipt, p.Coin, map[string]any{"registry": r.id.Hex()})
	r.env.Emitter.Emit(ctx, receipt)
	return receipt, nil
}

func (r *Registry) process(ctx context.Context, p types.RegistryPayment) (types.PaymentReceipt, error) {
	managed, err := r.boolConfig(ctx, ConfigRegistryManagedFunds, DefaultRegistryManagedFunds)
	if err != nil {
		return types.PaymentReceipt{}, err
	}

	var receiver types.Address
	if managed {
		if p.Receiver != nil && *p.Receiver != r.id {
			return types.PaymentReceipt{}, types.NewError(types.ErrRegistryMustBeReceiver,
				"registry %s manages funds but receiver is %s", r.id.Hex(), p.Receiver.Hex())
		}
		receiver = r.id
	} else {
		if p.Receiver == nil {
			return types.PaymentReceipt{}, types.NewError(types.ErrReceiverMustBeProvided,
				"registry %s does not manage funds and no receiver was given", r.id.Hex())
		}
		receiver = *p.Receiver
	}

	if err := verifyPayment(p.Nonce, p.PaymentAmount, p.Coin); err != nil {
		return types.PaymentReceipt{}, err
	}

	key := types.NewPaymentKey(p.Coin.Asset, p.Nonce, p.PaymentAmount, receiver)
	if managed {
		err = r.custodyPayment(ctx, key, p.Coin)
	} else {
		err = r.transferPayment(ctx, key, p.Coin)
	}
	if err != nil {
		return types.PaymentReceipt{}, err
	}

	return types.PaymentReceipt{
		PaymentType:   types.RegistryPaymentType(r.id),
		Nonce:         p.Nonce,
		PaymentAmount: p.PaymentAmount,
		Receiver:      receiver,
		AssetTypeName: string(p.Coin.Asset),
		TimestampMs:   r.env.Clock.NowMs(),
	}, nil
}

// custodyPayment rejects a credit that would overflow before recording the
// payment. The store re-checks on credit, which covers writers in other
// processes.
func (r *Registry) custodyPayment(ctx context.Context, key types.PaymentKey, coin types.Coin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, _, err := r.Balance(ctx, coin.Asset)
	if err != nil {
		return err
	}
	if _, carry := bits.Add64(current, coin.Amount, 0); carry != 0 {
		return types.NewError(types.ErrBalanceOverflow, "custody of %s would overflow", coin.Asset)
	}

	if err := r.claim(ctx, key); err != nil {
		return err
	}
	if _, err := r.custody.Credit(ctx, coin.Asset, coin.Amount); err != nil {
		r.release(ctx, key)
		if errors.Is(err, store.ErrBalanceOverflow) {
			return types.NewError(types.ErrBalanceOverflow, "custody of %s would overflow", coin.Asset)
		}
		return types.WrapError(types.ErrStoreError, err, "credit %s", coin)
	}
	return nil
}

// transferPayment holds the record while the coin moves, so a concurrent
// duplicate is rejected even though no lock is held across the transfer.
func (r *Registry) transferPayment(ctx context.Context, key types.PaymentKey, coin types.Coin) error {
	if err := r.claim(ctx, key); err != nil {
		return err
	}
	if err := r.env.Transferer.Transfer(ctx, coin, key.Receiver); err != nil {
		r.release(ctx, key)
		return types.WrapError(types.ErrTransferFailed, err, "transfer %s to %s", coin, key.Receiver.Hex())
	}
	return nil
}

func (r *Registry) claim(ctx context.Context, key types.PaymentKey) error {
	rec := types.PaymentRecord{EpochAtTimeOfRecord: r.env.Clock.CurrentEpoch()}
	err := r.records.Insert(ctx, key, rec)
	if errors.Is(err, store.ErrRecordExists) {
		return types.NewError(types.ErrPaymentAlreadyExists,
			"payment with nonce %q amount %d receiver %s asset %s already recorded",
			key.Nonce, key.PaymentAmount, key.Receiver.Hex(), key.Asset).WithData(key)
	}
	if err != nil {
		return types.WrapError(types.ErrStoreError, err, "write payment record")
	}
	return nil
}

// release undoes claim after a failed transfer or credit. It runs even if
// ctx was canceled, since the failure may be the cancellation itself.
func (r *Registry) release(ctx context.Context, key types.PaymentKey) {
	err := r.records.Delete(context.WithoutCancel(ctx), key)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		r.env.Logger.Error("failed to release payment record", map[string]any{
			"registry": r.id.Hex(),
			"nonce":    key.Nonce,
			"error":    err,
		})
	}
}

// BatchResult is the outcome of one payment in a batch.
type BatchResult struct {
	Receipt types.PaymentReceipt
	Err     error
}

// ProcessBatch runs payments one after another. Each item succeeds or fails
// on its own; a failure does not stop the batch. A positive itemTimeout
// bounds each item separately. A canceled context fails the remaining items
// with the context error.
func (r *Registry) ProcessBatch(ctx context.Context, payments []types.RegistryPayment, itemTimeout time.Duration) []BatchResult {
	results := make([]BatchResult, len(payments))
	for i, p := range payments {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Receipt, results[i].Err = r.processItem(ctx, p, itemTimeout)
	}
	return results
}

func (r *Registry) processItem(ctx context.Context, p types.RegistryPayment, timeout time.Duration) (types.PaymentReceipt, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.ProcessInRegistry(ctx, p)
}

func (e Env) processed(msg string, receipt types.PaymentReceipt, coin types.Coin, extra map[string]any) {
	fields := e.amountFields(coin.Asset, coin.Amount, extra)
	fields["nonce"] = receipt.Nonce
	fields["receiver"] = receipt.Receiver.Hex()
	e.Logger.Info(msg, fields)
	e.Metrics.IncCounter(metrics.EventPaymentProcessed, assetLabels(coin.Asset))
}

// rejected logs a failed payment. Collaborator failures are warnings;
// rule violations are debug entries.
func (e Env) rejected(msg, nonce string, coin types.Coin, err error, kv ...string) {
	fields := e.amountFields(coin.Asset, coin.Amount, nil)
	fields["nonce"] = nonce
	fields["error"] = err
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	var kerr *types.Error
	if errors.As(err, &kerr) {
		fields["code"] = kerr.Code
	}
	if errors.Is(err, types.ErrTransferFailed) || errors.Is(err, types.ErrStoreError) {
		e.Logger.Warn(msg, fields)
	} else {
		e.Logger.Debug(msg, fields)
	}
	e.Metrics.IncCounter(metrics.EventPaymentRejected, assetLabels(coin.Asset))
}
