package paymentkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paymentkit/clients"
	"github.com/vitwit/paymentkit/events"
	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

const sui types.AssetType = "0x2::sui::SUI"

func newTestKit(t *testing.T, opts ...Option) (*Kit, *clients.MemoryLedger, *clients.ManualClock) {
	t.Helper()
	ledger := clients.NewMemoryLedger()
	clock := clients.NewManualClock(1, 1000)
	base := []Option{
		WithTransferer(ledger),
		WithClock(clock),
		WithLogger(logger.NoopLogger{}),
		WithMetrics(metrics.NoopRecorder{}),
	}
	k, err := New(&types.KitConfig{Namespace: "test"}, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })
	return k, ledger, clock
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrConfigError)

	_, err = New(&types.KitConfig{}, WithTransferer(clients.NewMemoryLedger()))
	assert.ErrorIs(t, err, types.ErrConfigError)

	_, err = New(&types.KitConfig{Namespace: "x", LogLevel: "chatty"}, WithTransferer(clients.NewMemoryLedger()))
	assert.ErrorIs(t, err, types.ErrConfigError)

	_, err = New(&types.KitConfig{Namespace: "x"}, WithLogger(logger.NoopLogger{}))
	assert.ErrorIs(t, err, types.ErrConfigError, "a transferer is required")
}

func TestNewWithDefaults(t *testing.T) {
	k, err := NewWithDefaults(WithLogger(logger.NoopLogger{}))
	require.NoError(t, err)
	defer k.Close()

	assert.Equal(t, DefaultNamespace, k.Config().Namespace)
	reg, _, err := k.CreateRegistry(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, k.DeriveRegistryID("shop"), reg.ID())
}

func TestKitShopScenario(t *testing.T) {
	k, ledger, _ := newTestKit(t)
	ctx := context.Background()

	var seen []types.PaymentReceipt
	unsubscribe := k.Subscribe(func(r types.PaymentReceipt) { seen = append(seen, r) })
	defer unsubscribe()

	shop, adminCap, err := k.CreateRegistry(ctx, "shop")
	require.NoError(t, err)
	require.NoError(t, shop.SetConfigRegistryManagedFunds(ctx, adminCap, true))

	for i, amount := range []uint64{1000, 2000, 1500} {
		_, err := k.ProcessInRegistry(ctx, shop, types.RegistryPayment{
			Nonce:         fmt.Sprintf("order-%d", i),
			PaymentAmount: amount,
			Coin:          types.NewCoin(sui, amount),
		})
		require.NoError(t, err)
	}

	coin, err := shop.WithdrawFromRegistry(ctx, adminCap, sui)
	require.NoError(t, err)
	assert.Equal(t, uint64(4500), coin.Amount)

	_, err = shop.WithdrawFromRegistry(ctx, adminCap, sui)
	assert.ErrorIs(t, err, types.ErrRegistryBalanceDoesNotExist)

	assert.Len(t, seen, 3)
	assert.Equal(t, 0, ledger.Transfers())
}

func TestKitRegistryLookup(t *testing.T) {
	k, _, _ := newTestKit(t)
	ctx := context.Background()

	_, ok := k.Registry("shop")
	assert.False(t, ok)
	exists, err := k.RegistryExists(ctx, "shop")
	require.NoError(t, err)
	assert.False(t, exists)

	reg, _, err := k.CreateRegistry(ctx, "shop")
	require.NoError(t, err)

	got, ok := k.Registry("shop")
	require.True(t, ok)
	assert.Same(t, reg, got)
	exists, err = k.RegistryExists(ctx, "shop")
	require.NoError(t, err)
	assert.True(t, exists)

	opened, err := k.OpenRegistry(ctx, "shop")
	require.NoError(t, err)
	assert.Same(t, reg, opened)

	_, _, err = k.CreateRegistry(ctx, "shop")
	assert.ErrorIs(t, err, types.ErrNameAlreadyClaimed)
}

func TestKitEphemeralAndEmitter(t *testing.T) {
	rec := &events.Recorder{}
	k, ledger, _ := newTestKit(t, WithEmitter(rec))
	bob := types.MustHexToAddress("0xb0b")

	receipt, err := k.ProcessEphemeral(context.Background(), types.EphemeralPayment{
		Nonce: "e", PaymentAmount: 3, Coin: types.NewCoin(sui, 3), Receiver: bob,
	})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentKindEphemeral, receipt.PaymentType.Kind)
	assert.Equal(t, uint64(1000), receipt.TimestampMs)
	assert.Equal(t, uint64(3), ledger.BalanceOf(bob, sui))
	assert.Equal(t, []types.PaymentReceipt{receipt}, rec.Receipts())
}

func TestKitDeleteAndBatch(t *testing.T) {
	k, _, clock := newTestKit(t, WithBackend(store.NewMemoryBackend()))
	ctx := context.Background()
	bob := types.MustHexToAddress("0xb0b")

	reg, _, err := k.CreateRegistry(ctx, "shop")
	require.NoError(t, err)

	pay := func(nonce string) types.RegistryPayment {
		return types.RegistryPayment{Nonce: nonce, PaymentAmount: 1, Coin: types.NewCoin(sui, 1), Receiver: &bob}
	}
	results := k.ProcessBatchInRegistry(ctx, reg, []types.RegistryPayment{pay("a"), pay("a"), pay("b")})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, types.ErrPaymentAlreadyExists)
	require.NoError(t, results[2].Err)

	key := results[0].Receipt.Key()
	assert.ErrorIs(t, k.DeletePaymentRecord(ctx, reg, key), types.ErrPaymentRecordHasNotExpired)
	clock.AdvanceEpoch(30)
	require.NoError(t, k.DeletePaymentRecord(ctx, reg, key))
}

func TestKitTimeout(t *testing.T) {
	var deadline bool
	transferer := clients.TransferFunc(func(ctx context.Context, _ types.Coin, _ types.Address) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	k, _, _ := newTestKit(t, WithTransferer(transferer), WithTimeout(time.Second))

	_, err := k.ProcessEphemeral(context.Background(), types.EphemeralPayment{
		Nonce: "t", PaymentAmount: 1, Coin: types.NewCoin(sui, 1),
	})
	require.NoError(t, err)
	assert.True(t, deadline)
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v["library_version"])
	assert.Contains(t, v["config_keys"], "registry_managed_funds")
}

func TestKitRoutes(t *testing.T) {
	suiLedger := clients.NewMemoryLedger()
	usdcLedger := clients.NewMemoryLedger()
	k, err := New(&types.KitConfig{Namespace: "routes"},
		WithLogger(logger.NoopLogger{}),
		WithRoute(sui, suiLedger),
		WithRoute("USDC", usdcLedger),
	)
	require.NoError(t, err)
	defer k.Close()

	bob := types.MustHexToAddress("0xb0b")
	ctx := context.Background()
	_, err = k.ProcessEphemeral(ctx, types.EphemeralPayment{Nonce: "a", PaymentAmount: 2, Coin: types.NewCoin(sui, 2), Receiver: bob})
	require.NoError(t, err)
	_, err = k.ProcessEphemeral(ctx, types.EphemeralPayment{Nonce: "b", PaymentAmount: 3, Coin: types.NewCoin("USDC", 3), Receiver: bob})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), suiLedger.BalanceOf(bob, sui))
	assert.Equal(t, uint64(3), usdcLedger.BalanceOf(bob, "USDC"))

	_, err = k.ProcessEphemeral(ctx, types.EphemeralPayment{Nonce: "c", PaymentAmount: 1, Coin: types.NewCoin("DOGE", 1), Receiver: bob})
	assert.ErrorIs(t, err, types.ErrTransferFailed)
	assert.ErrorIs(t, err, clients.ErrUnsupportedAsset)

	_, err = New(&types.KitConfig{Namespace: "routes"}, WithRoute("", suiLedger))
	assert.ErrorIs(t, err, types.ErrConfigError)
}

func TestKitRoutesHonorLaterTimeout(t *testing.T) {
	k, err := New(&types.KitConfig{Namespace: "routes"},
		WithLogger(logger.NoopLogger{}),
		WithRoute(sui, clients.NewMemoryLedger()),
		WithTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer k.Close()

	require.NotNil(t, k.router)
	assert.Equal(t, 2*time.Second, k.router.Timeout())
}

func TestKitBatchBoundsEachItem(t *testing.T) {
	var deadlines int
	transferer := clients.TransferFunc(func(ctx context.Context, _ types.Coin, _ types.Address) error {
		if _, ok := ctx.Deadline(); ok {
			deadlines++
		}
		return nil
	})
	k, _, _ := newTestKit(t, WithTransferer(transferer), WithTimeout(time.Second))
	ctx := context.Background()
	bob := types.MustHexToAddress("0xb0b")

	reg, _, err := k.CreateRegistry(ctx, "shop")
	require.NoError(t, err)
	results := k.ProcessBatchInRegistry(ctx, reg, []types.RegistryPayment{
		{Nonce: "a", PaymentAmount: 1, Coin: types.NewCoin(sui, 1), Receiver: &bob},
		{Nonce: "b", PaymentAmount: 1, Coin: types.NewCoin(sui, 1), Receiver: &bob},
	})
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 2, deadlines)
}

func TestKitsSharingABackend(t *testing.T) {
	backend := store.NewMemoryBackend()
	ctx := context.Background()

	first, _, _ := newTestKit(t, WithBackend(backend))
	shop, adminCap, err := first.CreateRegistry(ctx, "shop")
	require.NoError(t, err)
	require.NoError(t, shop.SetConfigRegistryManagedFunds(ctx, adminCap, true))
	_, err = first.ProcessInRegistry(ctx, shop, types.RegistryPayment{
		Nonce: "order-1", PaymentAmount: 1000, Coin: types.NewCoin(sui, 1000),
	})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, _, _ := newTestKit(t, WithBackend(backend))
	_, _, err = second.CreateRegistry(ctx, "shop")
	assert.ErrorIs(t, err, types.ErrNameAlreadyClaimed)

	reopened, err := second.OpenRegistry(ctx, "shop")
	require.NoError(t, err)
	recovered, err := second.RecoverAdminCap(ctx, "shop", adminCap.ID())
	require.NoError(t, err)

	coin, err := reopened.WithdrawFromRegistry(ctx, recovered, sui)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), coin.Amount)
}
