package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

// TokenClaims is the claim set of a provider access token
type TokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Claims is what the portal reads out of an access token
type Claims struct {
	Subject   string
	Email     string
	Role      string
	SessionID string
	Expiry    time.Time
}

// TokenInspector extracts claims from an access token.
type TokenInspector interface {
	Inspect(ctx context.Context, accessToken string) (*Claims, error)
}

// OIDCVerifier checks the token signature against the provider's published keys,
// as well as issuer, audience and expiry.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ TokenInspector = (*OIDCVerifier)(nil)

// NewOIDCVerifier verifies tokens using the remote JWKS of the provider.
func NewOIDCVerifier(ctx context.Context, issuer, jwksURL, audience string) *OIDCVerifier {
	return NewOIDCVerifierWithKeySet(issuer, audience, oidc.NewRemoteKeySet(ctx, jwksURL))
}

// NewOIDCVerifierWithKeySet verifies tokens against an explicit key set.
func NewOIDCVerifierWithKeySet(issuer, audience string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID:             audience,
			SkipClientIDCheck:    audience == "",
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		}),
	}
}

func (v *OIDCVerifier) Inspect(ctx context.Context, accessToken string) (*Claims, error) {
	token, err := v.verifier.Verify(ctx, accessToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if apperrors.As(err, &expired) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialExpiredOrUsed, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialMalformed, err)
	}
	var tc TokenClaims
	if err := token.Claims(&tc); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", apperrors.ErrCredentialMalformed, err)
	}
	return &Claims{
		Subject:   token.Subject,
		Email:     tc.Email,
		Role:      tc.Role,
		SessionID: tc.SessionID,
		Expiry:    token.Expiry,
	}, nil
}

// UnverifiedParser decodes claims without checking the signature. It is used to
// read the expiry of tokens handed over by the browser before they are validated
// with the provider, and for subject extraction when JWKS verification is off.
type UnverifiedParser struct{}

var _ TokenInspector = UnverifiedParser{}

func (UnverifiedParser) Inspect(_ context.Context, accessToken string) (*Claims, error) {
	var tc TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &tc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialMalformed, err)
	}
	claims := &Claims{
		Subject:   tc.Subject,
		Email:     tc.Email,
		Role:      tc.Role,
		SessionID: tc.SessionID,
	}
	if tc.ExpiresAt != nil {
		claims.Expiry = tc.ExpiresAt.Time
	}
	return claims, nil
}
