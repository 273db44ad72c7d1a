package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a base-unit amount with the given number of decimals,
// e.g. FormatAmount(1500000, 6) == "1.5".
func FormatAmount(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).String()
}

// ParseAmount converts a decimal string into base units. The result must be
// a whole number of base units that fits in a uint64.
func ParseAmount(amount string, decimals int32) (uint64, error) {
	if amount == "" {
		return 0, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return 0, fmt.Errorf("amount cannot be negative")
	}

	scaled := dec.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}

	raw := scaled.BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64", amount)
	}
	return raw.Uint64(), nil
}
