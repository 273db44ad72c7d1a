package paymentkit

import (
	"time"

	"github.com/vitwit/paymentkit/clients"
	"github.com/vitwit/paymentkit/events"
	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

type Option func(*Kit)

func WithLogger(l logger.Logger) Option {
	return func(k *Kit) {
		k.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(k *Kit) {
		k.metrics = r
	}
}

// WithTimeout bounds each payment or deletion call, transfers included.
// Registry queries and admin calls never wait on a transfer, so a slow
// node only delays the payment that is using it.
func WithTimeout(t time.Duration) Option {
	return func(k *Kit) {
		k.timeout = t
	}
}

func WithTransferer(t clients.Transferer) Option {
	return func(k *Kit) {
		k.transferer = t
	}
}

func WithClock(c clients.Clock) Option {
	return func(k *Kit) {
		k.clock = c
	}
}

// WithEmitter adds an emitter next to the kit's own subscription bus.
func WithEmitter(e events.Emitter) Option {
	return func(k *Kit) {
		k.emitter = e
	}
}

// WithBackend overrides where the kit keeps claims, records, custody and
// config. Kits sharing a backend share their registries.
func WithBackend(b store.Backend) Option {
	return func(k *Kit) {
		k.backend = b
	}
}

type route struct {
	asset      types.AssetType
	transferer clients.Transferer
}

// WithRoute pays out asset through t. Routes are used only when no
// transferer is set with WithTransferer. The router is built once all
// options are applied, so it honors WithTimeout wherever that appears.
func WithRoute(asset types.AssetType, t clients.Transferer) Option {
	return func(k *Kit) {
		k.routes = append(k.routes, route{asset: asset, transferer: t})
	}
}
