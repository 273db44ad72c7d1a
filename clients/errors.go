package clients

import "errors"

var (
	ErrUnsupportedAsset   = errors.New("unsupported asset")
	ErrNoSigner           = errors.New("no signer configured")
	ErrLedgerOverflow     = errors.New("ledger balance overflow")
	ErrBlockhashNotLoaded = errors.New("latest blockhash unavailable")
)
