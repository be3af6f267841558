package messaging

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when neither a complete tenant override
	// nor a complete platform credential set exists.
	ErrNotConfigured = errors.New("messaging: sms integration not configured")
	// ErrInvalidNumber is returned when a recipient number cannot be
	// normalized to the canonical international format.
	ErrInvalidNumber = errors.New("messaging: invalid phone number")
	// ErrStoreUnavailable marks persistence failures surfaced from the
	// message store.
	ErrStoreUnavailable = errors.New("messaging: message store unavailable")
	// ErrMessageNotFound is returned when no message exists for a provider
	// message id.
	ErrMessageNotFound = errors.New("messaging: message not found")
)

// ProviderError carries the remote provider's rejection details for an
// outbound dispatch.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("messaging: provider rejected send: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("messaging: provider rejected send: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("messaging: provider rejected send: status %d", e.StatusCode)
}
