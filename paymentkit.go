// Package paymentkit records payments exactly once. A Kit owns a namespace
// of named payment registries; each registry rejects duplicate payments by
// their (nonce, amount, receiver, asset) key, can hold custody of what it
// receives and expires its records by epoch.
package paymentkit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitwit/paymentkit/clients"
	"github.com/vitwit/paymentkit/events"
	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/registry"
	"github.com/vitwit/paymentkit/settlement"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

// DefaultNamespace seeds the identity space of NewWithDefaults.
const DefaultNamespace = "default"

const dialTimeout = 5 * time.Second

var (
	promOnce     sync.Once
	promRecorder *metrics.PrometheusRecorder
)

// Kit is the main entry point: it creates registries and processes payments.
type Kit struct {
	config    *types.KitConfig
	namespace *registry.Namespace
	bus       *events.Bus

	logger     logger.Logger
	metrics    metrics.Recorder
	transferer clients.Transferer
	routes     []route
	router     *settlement.SettlementService
	clock      clients.Clock
	emitter    events.Emitter
	backend    store.Backend
	timeout    time.Duration

	redis *redis.Client

	mu         sync.RWMutex
	registries map[string]*registry.Registry
}

// New builds a Kit from a validated config. A transferer must be supplied
// with WithTransferer or per asset with WithRoute. When RedisURL is set and
// no backend is given, claims, records, custody and config live in Redis,
// and receipts are also published there.
func New(config *types.KitConfig, opts ...Option) (*Kit, error) {
	if config == nil {
		return nil, types.NewError(types.ErrConfigError, "kit config is required")
	}
	if err := utils.ValidateKitConfig(config); err != nil {
		return nil, err
	}

	k := &Kit{
		config:     config,
		bus:        events.NewBus(),
		registries: make(map[string]*registry.Registry),
	}
	for _, opt := range opts {
		opt(k)
	}
	if len(k.routes) > 0 {
		k.router = settlement.NewSettlementService(k.timeout)
		for _, r := range k.routes {
			if err := k.router.AddTransferer(r.asset, r.transferer); err != nil {
				return nil, err
			}
		}
		if k.transferer == nil {
			k.transferer = k.router
		}
	}

	if k.logger == nil {
		k.logger = logger.NewZapLogger(config.LogLevel)
	}
	if k.metrics == nil && config.EnableMetrics {
		promOnce.Do(func() {
			promRecorder = metrics.NewPrometheusRecorder(nil)
		})
		k.metrics = promRecorder
	}
	if k.clock == nil {
		k.clock = clients.NewSystemClock(time.Duration(config.EpochDurationMs) * time.Millisecond)
	}

	var publisher events.Emitter
	if config.RedisURL != "" && k.backend == nil {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		client, err := store.DialRedis(ctx, config.RedisURL)
		cancel()
		if err != nil {
			return nil, types.WrapError(types.ErrConfigError, err, "connect redis backend")
		}
		k.redis = client
		k.backend = store.NewRedisBackend(client, config.RedisKeyPrefix)
		publisher = events.NewRedisPublisher(client, config.ReceiptChannel, k.logger)
	}

	ns, err := registry.NewNamespace(config.Namespace, registry.Env{
		Transferer: k.transferer,
		Clock:      k.clock,
		Emitter:    events.Combine(k.bus, k.emitter, publisher),
		Logger:     k.logger,
		Metrics:    k.metrics,
		Backend:    k.backend,
		Decimals:   config.AssetDecimals,
	})
	if err != nil {
		k.Close()
		return nil, err
	}
	k.namespace = ns

	k.logger.Info("payment kit started", map[string]any{
		"namespace": config.Namespace,
		"space":     ns.ID().Hex(),
		"redis":     k.redis != nil,
	})
	return k, nil
}

// NewWithDefaults builds a Kit over an in-memory ledger, an in-memory
// backend and the system clock. Options still apply.
func NewWithDefaults(opts ...Option) (*Kit, error) {
	config := &types.KitConfig{
		Namespace:       DefaultNamespace,
		LogLevel:        "info",
		EpochDurationMs: uint64(clients.DefaultEpochDuration / time.Millisecond),
	}
	return New(config, append([]Option{WithTransferer(clients.NewMemoryLedger())}, opts...)...)
}

// Config returns the configuration the kit was built with.
func (k *Kit) Config() types.KitConfig {
	return *k.config
}

// SpaceID is the root identity all registry ids derive from.
func (k *Kit) SpaceID() types.Address {
	return k.namespace.ID()
}

// CreateRegistry claims name and returns the new registry with its admin
// capability. The registry is also kept for lookup by name.
func (k *Kit) CreateRegistry(ctx context.Context, name string) (*registry.Registry, *registry.AdminCap, error) {
	reg, adminCap, err := k.namespace.CreateRegistry(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	k.track(reg)
	return reg, adminCap, nil
}

// OpenRegistry returns the registry called name, opening it from the
// backend when it was created by another process or before a restart.
func (k *Kit) OpenRegistry(ctx context.Context, name string) (*registry.Registry, error) {
	if reg, ok := k.Registry(name); ok {
		return reg, nil
	}
	reg, err := k.namespace.OpenRegistry(ctx, name)
	if err != nil {
		return nil, err
	}
	return k.track(reg), nil
}

// RecoverAdminCap rebuilds the admin capability of name from its id.
func (k *Kit) RecoverAdminCap(ctx context.Context, name, adminCapID string) (*registry.AdminCap, error) {
	return k.namespace.RecoverAdminCap(ctx, name, adminCapID)
}

// track keeps the first handle seen for a name.
func (k *Kit) track(reg *registry.Registry) *registry.Registry {
	k.mu.Lock()
	defer k.mu.Unlock()
	if existing, ok := k.registries[reg.Name()]; ok {
		return existing
	}
	k.registries[reg.Name()] = reg
	return reg
}

// Registry returns a registry created or opened by this kit.
func (k *Kit) Registry(name string) (*registry.Registry, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	reg, ok := k.registries[name]
	return reg, ok
}

// RegistryExists reports whether name is claimed in the kit namespace.
func (k *Kit) RegistryExists(ctx context.Context, name string) (bool, error) {
	return k.namespace.Exists(ctx, name)
}

// DeriveRegistryID computes the identity of the registry called name.
func (k *Kit) DeriveRegistryID(name string) types.Address {
	return k.namespace.DeriveID(name)
}

// ProcessEphemeral transfers a verified payment without recording it.
func (k *Kit) ProcessEphemeral(ctx context.Context, p types.EphemeralPayment) (types.PaymentReceipt, error) {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()
	return k.namespace.ProcessEphemeral(ctx, p)
}

// ProcessInRegistry records p in reg.
func (k *Kit) ProcessInRegistry(ctx context.Context, reg *registry.Registry, p types.RegistryPayment) (types.PaymentReceipt, error) {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()
	return reg.ProcessInRegistry(ctx, p)
}

// ProcessBatchInRegistry records payments in order. Every item gets its own
// timeout and its own result.
func (k *Kit) ProcessBatchInRegistry(ctx context.Context, reg *registry.Registry, payments []types.RegistryPayment) []registry.BatchResult {
	return reg.ProcessBatch(ctx, payments, k.timeout)
}

// DeletePaymentRecord removes an expired record from reg.
func (k *Kit) DeletePaymentRecord(ctx context.Context, reg *registry.Registry, key types.PaymentKey) error {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()
	return reg.DeletePaymentRecord(ctx, key)
}

// Subscribe registers a handler for every receipt the kit produces. Returns
// an unsubscribe function.
func (k *Kit) Subscribe(handler events.Handler) func() {
	return k.bus.Subscribe(handler)
}

func (k *Kit) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, k.timeout)
}

// Close releases the Redis connection opened by New and the connections of
// routed transferers.
func (k *Kit) Close() error {
	if k.router != nil {
		k.router.Close()
	}
	var err error
	if k.redis != nil {
		err = k.redis.Close()
		k.redis = nil
	}
	if z, ok := k.logger.(*logger.ZapLogger); ok {
		_ = z.Sync()
	}
	return err
}

// Version information
const (
	Version = "1.0.0"
)

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version": Version,
		"config_keys": []string{
			registry.ConfigEpochExpirationDuration,
			registry.ConfigRegistryManagedFunds,
		},
		"record_stores": []string{"memory", "redis"},
		"transferers":   []string{"memory", "evm", "solana"},
	}
}
