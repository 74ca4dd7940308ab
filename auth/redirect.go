package auth

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

// ValidateRedirectTarget accepts only same-origin relative paths.
func ValidateRedirectTarget(target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty target", apperrors.ErrOpenRedirectRejected)
	}
	if !strings.HasPrefix(target, "/") {
		return fmt.Errorf("%w: not a rooted path", apperrors.ErrOpenRedirectRejected)
	}
	// "//host" and "/\host" are network-path references to browsers
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fmt.Errorf("%w: network-path reference", apperrors.ErrOpenRedirectRejected)
	}
	if strings.ContainsAny(target, "\\\r\n\t") {
		return fmt.Errorf("%w: invalid characters", apperrors.ErrOpenRedirectRejected)
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrOpenRedirectRejected, err)
	}
	if u.Scheme != "" || u.Host != "" || u.User != nil {
		return fmt.Errorf("%w: absolute URL", apperrors.ErrOpenRedirectRejected)
	}
	return nil
}

// SafeRedirectTarget returns target when it is a same-origin relative path and
// fallback otherwise. Rejections are silent.
func SafeRedirectTarget(target, fallback string) string {
	if err := ValidateRedirectTarget(target); err != nil {
		return fallback
	}
	u, _ := url.Parse(target)
	u.Fragment = ""
	return u.String()
}
