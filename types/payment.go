package types

import (
	"encoding/binary"
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
)

// PaymentKind distinguishes fire-and-forget payments from registry payments.
type PaymentKind string

const (
	PaymentKindEphemeral PaymentKind = "ephemeral"
	PaymentKindRegistry  PaymentKind = "registry"
)

// PaymentType says where a payment was processed. RegistryID is set only
// for registry payments.
type PaymentType struct {
	Kind       PaymentKind `json:"kind"`
	RegistryID *Address    `json:"registryId,omitempty"`
}

func EphemeralPaymentType() PaymentType {
	return PaymentType{Kind: PaymentKindEphemeral}
}

func RegistryPaymentType(id Address) PaymentType {
	return PaymentType{Kind: PaymentKindRegistry, RegistryID: &id}
}

// PaymentKey is the composite identity of a registry payment. Two keys are
// equal iff nonce, amount, receiver and asset type all match, so the same
// nonce may be reused with a different amount, receiver or asset.
type PaymentKey struct {
	Asset         AssetType `json:"asset"`
	Nonce         string    `json:"nonce"`
	PaymentAmount uint64    `json:"paymentAmount"`
	Receiver      Address   `json:"receiver"`
}

func NewPaymentKey(asset AssetType, nonce string, amount uint64, receiver Address) PaymentKey {
	return PaymentKey{
		Asset:         asset,
		Nonce:         nonce,
		PaymentAmount: amount,
		Receiver:      receiver,
	}
}

// Digest is a stable Keccak-256 fingerprint of the key. Variable-length
// fields are length-prefixed so distinct keys never share an encoding.
func (k PaymentKey) Digest() [32]byte {
	buf := make([]byte, 0, 4+len(k.Asset)+4+len(k.Nonce)+8+AddressLength)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(k.Asset)))
	buf = append(buf, k.Asset...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(k.Nonce)))
	buf = append(buf, k.Nonce...)
	buf = binary.BigEndian.AppendUint64(buf, k.PaymentAmount)
	buf = append(buf, k.Receiver[:]...)
	return crypto.Keccak256Hash(buf)
}

// PaymentRecord is what a registry persists per payment key. It holds only
// the epoch the payment was recorded in; everything else is on the receipt.
type PaymentRecord struct {
	EpochAtTimeOfRecord uint64 `json:"epochAtTimeOfRecord"`
}

// PaymentReceipt is produced once per processed payment and emitted as an event.
type PaymentReceipt struct {
	PaymentType   PaymentType `json:"paymentType"`
	Nonce         string      `json:"nonce"`
	PaymentAmount uint64      `json:"paymentAmount"`
	Receiver      Address     `json:"receiver"`
	AssetTypeName string      `json:"assetTypeName"`
	TimestampMs   uint64      `json:"timestampMs"`
}

// Key returns the composite key a registry receipt was recorded under.
func (r PaymentReceipt) Key() PaymentKey {
	return NewPaymentKey(AssetType(r.AssetTypeName), r.Nonce, r.PaymentAmount, r.Receiver)
}

func (r PaymentReceipt) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// EphemeralPayment is a fire-and-forget payment request. It is never recorded.
type EphemeralPayment struct {
	Nonce         string  `json:"nonce"`
	PaymentAmount uint64  `json:"paymentAmount"`
	Coin          Coin    `json:"coin"`
	Receiver      Address `json:"receiver"`
}

// RegistryPayment is a payment request recorded by a registry. Receiver may
// be nil when the registry manages funds itself.
type RegistryPayment struct {
	Nonce         string   `json:"nonce"`
	PaymentAmount uint64   `json:"paymentAmount"`
	Coin          Coin     `json:"coin"`
	Receiver      *Address `json:"receiver,omitempty"`
}
