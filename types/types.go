package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength is the size in bytes of an account or object address.
const AddressLength = 32

// Address identifies an account, a registry or any other derived identity.
// Registries use their derived identity as their own receiving address.
type Address [AddressLength]byte

// BytesToAddress left-pads b into an Address. If b is longer than
// AddressLength only the trailing bytes are kept.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a hex address with or without the 0x prefix.
// Short forms such as "0x2" are accepted and left-padded.
func HexToAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw == "" {
		return Address{}, NewError(ErrInvalidAddress, "address %q is empty", s)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return Address{}, NewError(ErrInvalidAddress, "address %q is not valid hex: %v", s, err)
	}
	if len(b) > AddressLength {
		return Address{}, NewError(ErrInvalidAddress, "address %q is longer than %d bytes", s, AddressLength)
	}
	return BytesToAddress(b), nil
}

// MustHexToAddress is HexToAddress for constants and tests. It panics on bad input.
func MustHexToAddress(s string) Address {
	a, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the 0x-prefixed, full-width hex encoding.
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AssetType names the kind of value being moved, e.g. "0x2::sui::SUI" or "USDC".
// Payment keys and custody balances are always scoped by asset type.
type AssetType string

func (t AssetType) String() string {
	return string(t)
}

// Coin is a transferable amount of a single asset type. Once handed to the
// engine it is consumed: either moved to a receiver or taken into custody.
type Coin struct {
	Asset  AssetType `json:"asset"`
	Amount uint64    `json:"amount"`
}

// NewCoin builds a coin of the given asset.
func NewCoin(asset AssetType, amount uint64) Coin {
	return Coin{Asset: asset, Amount: amount}
}

func (c Coin) String() string {
	return fmt.Sprintf("%d %s", c.Amount, c.Asset)
}

// KitConfig contains global configuration for the payment kit.
type KitConfig struct {
	// Namespace seeds the identity space. Two kits with the same namespace
	// derive identical registry identities for identical names.
	Namespace string `json:"namespace" validate:"required,max=128"`

	LogLevel      string `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`

	// RedisURL enables the shared Redis record store and receipt publisher.
	RedisURL       string `json:"redisUrl,omitempty" validate:"omitempty,url"`
	RedisKeyPrefix string `json:"redisKeyPrefix,omitempty"`
	ReceiptChannel string `json:"receiptChannel,omitempty"`

	// EpochDurationMs sizes the epochs reported by the system clock.
	EpochDurationMs uint64 `json:"epochDurationMs,omitempty" validate:"omitempty,min=1"`

	// AssetDecimals is used only to render human-readable amounts in logs.
	AssetDecimals map[AssetType]int32 `json:"assetDecimals,omitempty" validate:"omitempty,dive,min=0,max=36"`
}

// Error is the single error type returned by the engine. Code identifies the
// failure kind; Message carries the details of this occurrence. Data, when
// set, is the structured subject of the failure, e.g. the PaymentKey of a
// duplicate payment.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error carrying the same code, so callers can compare
// against the exported sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the collaborator error behind a TRANSFER_FAILED or
// STORE_ERROR, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an error that matches the sentinel of the same code.
func NewError(sentinel *Error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    sentinel.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithData attaches structured context to e and returns it.
func (e *Error) WithData(data interface{}) *Error {
	e.Data = data
	return e
}

// WrapError is NewError for failures caused by a collaborator. The cause is
// appended to the message and stays reachable through errors.Is/As.
func WrapError(sentinel *Error, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    sentinel.Code,
		Message: fmt.Sprintf(format, args...) + ": " + cause.Error(),
		cause:   cause,
	}
}

// Error codes
const (
	CodeInvalidNonce                = "INVALID_NONCE"
	CodeInvalidName                 = "INVALID_NAME"
	CodeIncorrectAmount             = "INCORRECT_AMOUNT"
	CodePaymentAlreadyExists        = "PAYMENT_ALREADY_EXISTS"
	CodeRegistryMustBeReceiver      = "REGISTRY_MUST_BE_RECEIVER"
	CodeReceiverMustBeProvided      = "RECEIVER_MUST_BE_PROVIDED"
	CodePaymentRecordDoesNotExist   = "PAYMENT_RECORD_DOES_NOT_EXIST"
	CodePaymentRecordHasNotExpired  = "PAYMENT_RECORD_HAS_NOT_EXPIRED"
	CodeUnauthorizedAdmin           = "UNAUTHORIZED_ADMIN"
	CodeNameAlreadyClaimed          = "NAME_ALREADY_CLAIMED"
	CodeRegistryBalanceDoesNotExist = "REGISTRY_BALANCE_DOES_NOT_EXIST"
	CodeConfigTypeMismatch          = "CONFIG_TYPE_MISMATCH"
	CodeBalanceOverflow             = "BALANCE_OVERFLOW"
	CodeTransferFailed              = "TRANSFER_FAILED"
	CodeStoreError                  = "STORE_ERROR"
	CodeConfigError                 = "CONFIG_ERROR"
	CodeInvalidAddress              = "INVALID_ADDRESS"
	CodeInvalidString               = "INVALID_STRING"
	CodeRegistryDoesNotExist        = "REGISTRY_DOES_NOT_EXIST"
)

var (
	ErrInvalidNonce                = &Error{Code: CodeInvalidNonce, Message: "invalid nonce"}
	ErrInvalidName                 = &Error{Code: CodeInvalidName, Message: "invalid registry name"}
	ErrIncorrectAmount             = &Error{Code: CodeIncorrectAmount, Message: "coin amount does not match payment amount"}
	ErrPaymentAlreadyExists        = &Error{Code: CodePaymentAlreadyExists, Message: "payment record already exists"}
	ErrRegistryMustBeReceiver      = &Error{Code: CodeRegistryMustBeReceiver, Message: "registry must be the receiver of managed funds"}
	ErrReceiverMustBeProvided      = &Error{Code: CodeReceiverMustBeProvided, Message: "receiver must be provided"}
	ErrPaymentRecordDoesNotExist   = &Error{Code: CodePaymentRecordDoesNotExist, Message: "payment record does not exist"}
	ErrPaymentRecordHasNotExpired  = &Error{Code: CodePaymentRecordHasNotExpired, Message: "payment record has not expired"}
	ErrUnauthorizedAdmin           = &Error{Code: CodeUnauthorizedAdmin, Message: "admin capability does not match registry"}
	ErrNameAlreadyClaimed          = &Error{Code: CodeNameAlreadyClaimed, Message: "registry name already claimed"}
	ErrRegistryBalanceDoesNotExist = &Error{Code: CodeRegistryBalanceDoesNotExist, Message: "registry balance does not exist"}
	ErrConfigTypeMismatch          = &Error{Code: CodeConfigTypeMismatch, Message: "config value has a different type"}
	ErrBalanceOverflow             = &Error{Code: CodeBalanceOverflow, Message: "balance overflow"}
	ErrTransferFailed              = &Error{Code: CodeTransferFailed, Message: "transfer failed"}
	ErrStoreError                  = &Error{Code: CodeStoreError, Message: "record store failure"}
	ErrConfigError                 = &Error{Code: CodeConfigError, Message: "invalid configuration"}
	ErrInvalidAddress              = &Error{Code: CodeInvalidAddress, Message: "invalid address"}
	ErrInvalidString               = &Error{Code: CodeInvalidString, Message: "invalid string"}
	ErrRegistryDoesNotExist        = &Error{Code: CodeRegistryDoesNotExist, Message: "registry does not exist"}
)
