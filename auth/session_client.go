package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/jrsteele09/ir-portal/sessions"
	"golang.org/x/oauth2"
)

// expirySkew matches the leeway oauth2.Token uses when judging validity
const expirySkew = 10 * time.Second

// SessionEstablisher turns a credential into a session.
type SessionEstablisher interface {
	ExchangeCodeForSession(ctx context.Context, code string) (*identity.Session, error)
	VerifyOtp(ctx context.Context, tokenHash string, otpType identity.OtpType) (*identity.Session, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error)
}

// SessionGetter reports the session of the current request.
type SessionGetter interface {
	GetSession(ctx context.Context) (*identity.Session, error)
}

var (
	_ SessionEstablisher = (*SessionClient)(nil)
	_ SessionGetter      = (*SessionClient)(nil)
)

// SessionClient binds the identity provider to the cookie store of one request.
// Every session it obtains is written to the request's jar.
type SessionClient struct {
	provider  identity.Provider
	store     *sessions.Store
	jar       *sessions.Jar
	inspector identity.TokenInspector
}

// NewSessionClient creates a request-scoped client. inspector may be nil, in
// which case cookie sessions are trusted without checking the token signature.
func NewSessionClient(provider identity.Provider, store *sessions.Store, jar *sessions.Jar, inspector identity.TokenInspector) *SessionClient {
	return &SessionClient{
		provider:  provider,
		store:     store,
		jar:       jar,
		inspector: inspector,
	}
}

// GetSession returns the current session, or nil when there is none. An expired
// access token is refreshed and the refreshed session written back to the jar.
// Only a provider outage is reported as an error (ErrSessionLookupFailed).
func (c *SessionClient) GetSession(ctx context.Context) (*identity.Session, error) {
	session, err := c.store.Load(c.jar)
	if err != nil {
		return nil, nil
	}

	if !session.Valid() {
		refreshed, err := c.provider.RefreshSession(ctx, session.RefreshToken())
		if err != nil {
			if apperrors.IsCredentialError(err) {
				c.store.Clear(c.jar)
				return nil, nil
			}
			return nil, fmt.Errorf("%w: refresh: %v", apperrors.ErrSessionLookupFailed, err)
		}
		if err := c.store.Save(c.jar, refreshed); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSessionLookupFailed, err)
		}
		session = refreshed
	}

	if c.inspector != nil {
		claims, err := c.inspector.Inspect(ctx, session.AccessToken())
		if err != nil || claims.Subject != session.Subject() {
			return nil, nil
		}
	}
	return session, nil
}

func (c *SessionClient) ExchangeCodeForSession(ctx context.Context, code string) (*identity.Session, error) {
	verifier := c.store.LoadCodeVerifier(c.jar)
	session, err := c.provider.ExchangeCodeForSession(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	c.store.ClearCodeVerifier(c.jar)
	return c.persist(session)
}

func (c *SessionClient) VerifyOtp(ctx context.Context, tokenHash string, otpType identity.OtpType) (*identity.Session, error) {
	session, err := c.provider.VerifyOtp(ctx, tokenHash, otpType)
	if err != nil {
		return nil, err
	}
	return c.persist(session)
}

// SetSession establishes a session from tokens delivered outside the provider's
// token endpoint. The refresh token may be empty while the access token is valid.
func (c *SessionClient) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", apperrors.ErrCredentialMalformed)
	}
	claims, err := identity.UnverifiedParser{}.Inspect(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var session *identity.Session
	if !claims.Expiry.IsZero() && !claims.Expiry.After(time.Now().Add(expirySkew)) {
		if refreshToken == "" {
			return nil, fmt.Errorf("%w: access token expired and no refresh token", apperrors.ErrCredentialExpiredOrUsed)
		}
		if session, err = c.provider.RefreshSession(ctx, refreshToken); err != nil {
			return nil, err
		}
	} else {
		user, err := c.provider.GetUser(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		session = identity.NewSession(accessToken, "bearer", refreshToken, claims.Expiry, *user)
	}
	return c.persist(session)
}

// SignOut ends the session with the provider and clears the cookie. The cookie
// is cleared even when the provider call fails.
func (c *SessionClient) SignOut(ctx context.Context) error {
	session, err := c.store.Load(c.jar)
	c.store.Clear(c.jar)
	if err != nil {
		return nil
	}
	if err := c.provider.SignOut(ctx, session.AccessToken()); err != nil {
		return fmt.Errorf("[auth SignOut] %w", err)
	}
	return nil
}

func (c *SessionClient) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	session, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.persist(session)
}

// UpdatePassword changes the password of the user owning the current session.
func (c *SessionClient) UpdatePassword(ctx context.Context, password string) error {
	session, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return apperrors.ErrSessionNotFound
	}
	if _, err := c.provider.UpdateUser(ctx, session.AccessToken(), identity.UserAttributes{Password: password}); err != nil {
		return fmt.Errorf("[auth UpdatePassword] %w", err)
	}
	return nil
}

// ResetPasswordForEmail asks the provider to send a recovery link. The PKCE
// verifier for the resulting code is kept in a cookie until the callback.
func (c *SessionClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	verifier := oauth2.GenerateVerifier()
	if err := c.store.SaveCodeVerifier(c.jar, verifier); err != nil {
		return fmt.Errorf("[auth ResetPasswordForEmail] %w", err)
	}
	if err := c.provider.ResetPasswordForEmail(ctx, email, redirectTo, oauth2.S256ChallengeFromVerifier(verifier)); err != nil {
		return fmt.Errorf("[auth ResetPasswordForEmail] %w", err)
	}
	return nil
}

func (c *SessionClient) persist(session *identity.Session) (*identity.Session, error) {
	if err := c.store.Save(c.jar, session); err != nil {
		return nil, fmt.Errorf("[auth persist] %w", err)
	}
	return session, nil
}
