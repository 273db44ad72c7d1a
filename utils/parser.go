package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vitwit/paymentkit/types"
)

// ParseKitConfig parses and validates a KitConfig from JSON
func ParseKitConfig(data []byte) (*types.KitConfig, error) {
	var config types.KitConfig

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to parse kit config: %v", err)
	}

	if err := ValidateKitConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadKitConfig reads a JSON config file from disk.
func LoadKitConfig(path string) (*types.KitConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kit config %s: %w", path, err)
	}
	return ParseKitConfig(data)
}

// ValidateKitConfig checks a KitConfig using its struct tags.
func ValidateKitConfig(config *types.KitConfig) error {
	if err := validate.Struct(config); err != nil {
		return types.NewError(types.ErrConfigError, "validation failed: %v", err)
	}
	return nil
}

// SerializeReceipt converts a PaymentReceipt to JSON
func SerializeReceipt(receipt *types.PaymentReceipt) ([]byte, error) {
	return json.Marshal(receipt)
}

// ParseReceipt parses a PaymentReceipt from JSON
func ParseReceipt(data []byte) (*types.PaymentReceipt, error) {
	var receipt types.PaymentReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse payment receipt: %w", err)
	}
	return &receipt, nil
}
