package identity

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"golang.org/x/oauth2"
)

// OtpType is the purpose attached to a one-time token hash by the provider.
type OtpType string

const (
	OtpSignup      OtpType = "signup"
	OtpInvite      OtpType = "invite"
	OtpMagicLink   OtpType = "magiclink"
	OtpRecovery    OtpType = "recovery"
	OtpEmailChange OtpType = "email_change"
	OtpEmail       OtpType = "email"
)

var otpTypes = map[OtpType]struct{}{
	OtpSignup:      {},
	OtpInvite:      {},
	OtpMagicLink:   {},
	OtpRecovery:    {},
	OtpEmailChange: {},
	OtpEmail:       {},
}

// ParseOtpType validates an OTP type received on a redirect.
func ParseOtpType(s string) (OtpType, error) {
	t := OtpType(s)
	if _, ok := otpTypes[t]; !ok {
		return "", fmt.Errorf("%w: unsupported otp type %q", apperrors.ErrCredentialMalformed, s)
	}
	return t, nil
}

// User is the subset of the provider's user record the portal relies on
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// UserAttributes are the mutable user fields sent to UpdateUser
type UserAttributes struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Session is an established provider session: a token pair plus the user it belongs to.
type Session struct {
	Token *oauth2.Token
	User  User
}

// NewSession builds a session from its token parts.
func NewSession(accessToken, tokenType, refreshToken string, expiry time.Time, user User) *Session {
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &Session{
		Token: &oauth2.Token{
			AccessToken:  accessToken,
			TokenType:    tokenType,
			RefreshToken: refreshToken,
			Expiry:       expiry,
		},
		User: user,
	}
}

func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

func (s *Session) RefreshToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}

func (s *Session) Expiry() time.Time {
	if s == nil || s.Token == nil {
		return time.Time{}
	}
	return s.Token.Expiry
}

// Valid reports whether the access token is present and not about to expire.
func (s *Session) Valid() bool {
	return s != nil && s.Token.Valid()
}

// Subject returns the identifier of the signed-in user.
func (s *Session) Subject() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}
