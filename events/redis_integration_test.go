//go:build integration

package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/vitwit/paymentkit/events"
	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

func TestRedisPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := store.DialRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(ctx, "receipts-test")
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	pub := events.NewRedisPublisher(client, "receipts-test", nil)
	want := types.PaymentReceipt{
		PaymentType:   types.EphemeralPaymentType(),
		Nonce:         "pub-1",
		PaymentAmount: 5,
		Receiver:      types.MustHexToAddress("0x9"),
		AssetTypeName: "SUI",
		TimestampMs:   7,
	}
	pub.Emit(ctx, want)

	select {
	case msg := <-sub.Channel():
		got, err := utils.ParseReceipt([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	case <-time.After(5 * time.Second):
		t.Fatal("receipt not published")
	}
}
