package metrics

import "time"

// Counter and latency names recorded by registries.
const (
	EventPaymentProcessed = "payment_processed"
	EventPaymentRejected  = "payment_rejected"
	EventRecordDeleted    = "record_deleted"
	EventWithdrawal       = "withdrawal"
	EventRegistryCreated  = "registry_created"
	EventConfigUpdated    = "config_updated"

	OpProcessEphemeral = "process_ephemeral"
	OpProcessRegistry  = "process_registry"
	OpDeleteRecord     = "delete_record"
	OpWithdraw         = "withdraw"
)

// LabelAsset is the label carrying the asset type.
const LabelAsset = "asset"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
