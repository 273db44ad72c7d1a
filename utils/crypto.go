package utils

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vitwit/paymentkit/types"
)

// PrivateKeyFromHex creates a private key from hex string
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	// Remove 0x prefix if present
	hexKey = strings.TrimPrefix(hexKey, "0x")

	return crypto.HexToECDSA(hexKey)
}

// AddressFromPrivateKey derives the EVM address from a private key
func AddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// EVMAddress narrows a 32-byte address to its trailing 20 bytes. Addresses
// with any of the 12 leading bytes set have no EVM form.
func EVMAddress(a types.Address) (common.Address, error) {
	for _, b := range a[:len(a)-common.AddressLength] {
		if b != 0 {
			return common.Address{}, types.NewError(types.ErrInvalidAddress, "%s is not a 20-byte EVM address", a.Hex())
		}
	}
	return common.BytesToAddress(a[:]), nil
}

// FromEVMAddress widens a 20-byte EVM address into an Address.
func FromEVMAddress(a common.Address) types.Address {
	return types.BytesToAddress(a.Bytes())
}
