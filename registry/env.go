package registry

import (
	"github.com/vitwit/paymentkit/clients"
	"github.com/vitwit/paymentkit/events"
	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

// Env carries the collaborators shared by a namespace and its registries.
// Only Transferer is required; everything else has an in-process default.
type Env struct {
	Transferer clients.Transferer
	Clock      clients.Clock
	Emitter    events.Emitter
	Logger     logger.Logger
	Metrics    metrics.Recorder
	Backend    store.Backend

	// Decimals renders amounts for logs, keyed by asset type.
	Decimals map[types.AssetType]int32
}

func (e Env) withDefaults() (Env, error) {
	if e.Transferer == nil {
		return e, types.NewError(types.ErrConfigError, "a transferer is required")
	}
	if e.Clock == nil {
		e.Clock = clients.NewSystemClock(clients.DefaultEpochDuration)
	}
	if e.Emitter == nil {
		e.Emitter = events.Noop{}
	}
	if e.Backend == nil {
		e.Backend = store.NewMemoryBackend()
	}
	e.Logger = logger.OrNoop(e.Logger)
	e.Metrics = metrics.OrNoop(e.Metrics)
	return e, nil
}

func (e Env) amountFields(asset types.AssetType, amount uint64, fields map[string]any) map[string]any {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["asset"] = string(asset)
	fields["amount"] = amount
	if d, ok := e.Decimals[asset]; ok {
		fields["amountDisplay"] = utils.FormatAmount(amount, d)
	}
	return fields
}

func assetLabels(asset types.AssetType) map[string]string {
	return map[string]string{metrics.LabelAsset: string(asset)}
}
