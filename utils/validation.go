package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/paymentkit/types"
)

const (
	MinNameLength  = 3
	MaxNameLength  = 63
	MaxNonceLength = 36
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	if err := validate.RegisterValidation("registryname", validateRegistryNameTag); err != nil {
		panic(err)
	}
}

var (
	nameRule  = fmt.Sprintf("min=%d,max=%d,registryname", MinNameLength, MaxNameLength)
	nonceRule = fmt.Sprintf("required,max=%d", MaxNonceLength)
)

// ValidateName checks a registry name: 3 to 63 characters of lowercase ASCII
// letters, digits and hyphens, not starting or ending with a hyphen.
func ValidateName(name string) error {
	if err := validate.Var(name, nameRule); err != nil {
		return types.NewError(types.ErrInvalidName, "invalid registry name %q: %v", name, err)
	}
	return nil
}

// ValidateNonce checks a payment nonce: non-empty and at most 36 characters.
func ValidateNonce(nonce string) error {
	if err := validate.Var(nonce, nonceRule); err != nil {
		return types.NewError(types.ErrInvalidNonce, "invalid nonce %q: %v", nonce, err)
	}
	return nil
}

// IsValidName is the boolean form of ValidateName.
func IsValidName(name string) bool {
	return ValidateName(name) == nil
}

func validateRegistryNameTag(fl validator.FieldLevel) bool {
	return isRegistryName(fl.Field().String())
}

func isRegistryName(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
