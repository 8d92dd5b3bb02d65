package explorer

import (
	"regexp"
	"strings"

	"whalescan/pkg/errors"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAddress checks the EVM address format (0x + 40 hex chars) and
// returns the lowercase normalized form. Rejection happens before any
// network call and wraps ErrInvalidRequest.
func ValidateAddress(address string) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", errors.NewValidationError("address", "must be 0x followed by 40 hex characters", address)
	}
	return strings.ToLower(address), nil
}
