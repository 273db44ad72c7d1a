package events

import (
	"context"

	"github.com/vitwit/paymentkit/logger"
	"github.com/vitwit/paymentkit/types"
)

// LoggingEmitter writes each receipt as an info entry.
type LoggingEmitter struct {
	log logger.Logger
}

func NewLoggingEmitter(log logger.Logger) *LoggingEmitter {
	return &LoggingEmitter{log: logger.OrNoop(log)}
}

func (e *LoggingEmitter) Emit(_ context.Context, receipt types.PaymentReceipt) {
	fields := map[string]any{
		"paymentType": string(receipt.PaymentType.Kind),
		"nonce":       receipt.Nonce,
		"amount":      receipt.PaymentAmount,
		"receiver":    receipt.Receiver.Hex(),
		"asset":       receipt.AssetTypeName,
		"timestampMs": receipt.TimestampMs,
	}
	if receipt.PaymentType.RegistryID != nil {
		fields["registry"] = receipt.PaymentType.RegistryID.Hex()
	}
	e.log.Info("payment receipt", fields)
}
