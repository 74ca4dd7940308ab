package identity

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

// ProviderError is an error response returned by the identity provider.
// Unwrap yields the classification sentinel from internal/errors.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider: %d: %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.kind
}

// NewProviderError classifies a provider error response.
func NewProviderError(statusCode int, code, message string) *ProviderError {
	return &ProviderError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		kind:       classify(statusCode, code, message),
	}
}

var expiredOrUsedCodes = map[string]struct{}{
	"otp_expired":                {},
	"flow_state_expired":         {},
	"flow_state_not_found":       {},
	"refresh_token_already_used": {},
	"refresh_token_not_found":    {},
	"session_not_found":          {},
	"session_expired":            {},
}

func classify(statusCode int, code, message string) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests {
		return apperrors.ErrProviderUnavailable
	}
	if _, ok := expiredOrUsedCodes[code]; ok {
		return apperrors.ErrCredentialExpiredOrUsed
	}
	// Older provider versions answer refresh failures with a bare invalid_grant
	if code == "invalid_grant" {
		msg := strings.ToLower(message)
		if strings.Contains(msg, "expired") || strings.Contains(msg, "already used") || strings.Contains(msg, "not found") {
			return apperrors.ErrCredentialExpiredOrUsed
		}
	}
	return apperrors.ErrCredentialMalformed
}
