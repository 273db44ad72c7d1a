package events

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/types"
)

// DefaultReceiptChannel is the pub/sub channel receipts are published on.
const DefaultReceiptChannel = "paymentkit:receipts"

// RedisPublisher publishes receipts as JSON on a Redis channel. Publish
// failures are logged, never returned.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	log     logger.Logger
}

var _ Emitter = (*RedisPublisher)(nil)

func NewRedisPublisher(client redis.UniversalClient, channel string, log logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultReceiptChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		log:     logger.OrNoop(log),
	}
}

// Emit relies on PaymentReceipt implementing encoding.BinaryMarshaler.
func (p *RedisPublisher) Emit(ctx context.Context, receipt types.PaymentReceipt) {
	if err := p.client.Publish(ctx, p.channel, receipt).Err(); err != nil {
		p.log.Warn("failed to publish receipt", map[string]any{
			"channel": p.channel,
			"nonce":   receipt.Nonce,
			"error":   err,
		})
	}
}

func (p *RedisPublisher) Channel() string {
	return p.channel
}
