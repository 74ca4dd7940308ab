package auth

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

// CredentialKind identifies which redirect convention delivered a credential
type CredentialKind int

const (
	KindAuthorizationCode CredentialKind = iota + 1
	KindOtpTokenHash
	KindImplicitTokens
)

func (k CredentialKind) String() string {
	switch k {
	case KindAuthorizationCode:
		return "authorization_code"
	case KindOtpTokenHash:
		return "otp_token_hash"
	case KindImplicitTokens:
		return "implicit_tokens"
	default:
		return "unknown"
	}
}

// Credential is one of AuthorizationCode, OtpTokenHash or ImplicitTokens.
type Credential interface {
	Kind() CredentialKind
	credential()
}

// AuthorizationCode is a PKCE authorization code delivered in the query string
type AuthorizationCode struct {
	Code string
	Type string
	Next string
}

// OtpTokenHash is a one-time token hash delivered in the query string
type OtpTokenHash struct {
	Hash string
	Type identity.OtpType
	Next string
}

// ImplicitTokens is an access/refresh pair delivered in the URL fragment
type ImplicitTokens struct {
	AccessToken  string
	RefreshToken string
	Type         string
}

func (AuthorizationCode) Kind() CredentialKind { return KindAuthorizationCode }
func (OtpTokenHash) Kind() CredentialKind      { return KindOtpTokenHash }
func (ImplicitTokens) Kind() CredentialKind    { return KindImplicitTokens }

func (AuthorizationCode) credential() {}
func (OtpTokenHash) credential()      {}
func (ImplicitTokens) credential()    {}

// DeriveCredential picks the credential carried by a callback query string.
// A token hash with a type wins over a code. When neither is present the
// result is ErrNoCredentialPresented unless the provider reported an error.
func DeriveCredential(query url.Values) (Credential, error) {
	hash := query.Get("token_hash")
	if hash == "" {
		hash = query.Get("token")
	}
	typ := query.Get("type")
	next := query.Get("next")

	if hash != "" && typ != "" {
		otpType, err := identity.ParseOtpType(typ)
		if err != nil {
			return nil, err
		}
		return OtpTokenHash{Hash: hash, Type: otpType, Next: next}, nil
	}
	if code := query.Get("code"); code != "" {
		return AuthorizationCode{Code: code, Type: typ, Next: next}, nil
	}
	if err := redirectError(query); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrNoCredentialPresented
}

// DeriveFragmentCredential picks the credential carried by a URL fragment that
// the browser resubmitted. Only recovery tokens are accepted.
func DeriveFragmentCredential(fragment url.Values) (Credential, error) {
	if fragment.Get("type") == string(identity.OtpRecovery) && fragment.Get("access_token") != "" {
		return ImplicitTokens{
			AccessToken:  fragment.Get("access_token"),
			RefreshToken: fragment.Get("refresh_token"),
			Type:         fragment.Get("type"),
		}, nil
	}
	if err := redirectError(fragment); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no recognized credential in fragment", apperrors.ErrCredentialMalformed)
}

// redirectError converts error parameters the provider appends to its redirects
func redirectError(values url.Values) error {
	code := values.Get("error_code")
	if code == "" && values.Get("error") == "" {
		return nil
	}
	if code == "" {
		code = values.Get("error")
	}
	return identity.NewProviderError(http.StatusBadRequest, code, values.Get("error_description"))
}
