package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

// Outcome is the terminal state of a credential resolution
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeEstablished
	OutcomeNoCredential
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEstablished:
		return "established"
	case OutcomeNoCredential:
		return "no_credential"
	default:
		return "failed"
	}
}

// Purpose is why a session was established
type Purpose string

const (
	PurposeRecovery Purpose = "recovery"
	PurposeGeneric  Purpose = "generic"
)

// Paths are the redirect destinations used by the resolver and the guard
type Paths struct {
	Home          string
	Login         string
	ResetPassword string
	AuthError     string
}

func DefaultPaths() Paths {
	return Paths{
		Home:          "/",
		Login:         "/login",
		ResetPassword: "/reset-password",
		AuthError:     "/auth/auth-code-error",
	}
}

// Resolution is the result of resolving a callback.
type Resolution struct {
	Outcome  Outcome
	Purpose  Purpose
	Kind     CredentialKind
	Session  *identity.Session
	Redirect string
	// Err keeps the provider's error for logging; it is never shown to users
	Err error
}

// Resolver turns provider redirects into sessions.
type Resolver struct {
	paths Paths
}

func NewResolver(paths Paths) *Resolver {
	return &Resolver{paths: paths}
}

// ResolveQuery runs the server phase: credentials carried in the query string.
// OutcomeNoCredential means the caller must fall back to the fragment phase.
func (r *Resolver) ResolveQuery(ctx context.Context, establisher SessionEstablisher, query url.Values) Resolution {
	cred, err := DeriveCredential(query)
	if apperrors.Is(err, apperrors.ErrNoCredentialPresented) {
		return Resolution{Outcome: OutcomeNoCredential, Err: err}
	}
	if err != nil {
		return r.failed(0, err)
	}
	return r.resolve(ctx, establisher, cred)
}

// ResolveFragment runs the client phase: credentials the browser read from the
// URL fragment and resubmitted.
func (r *Resolver) ResolveFragment(ctx context.Context, establisher SessionEstablisher, fragment url.Values) Resolution {
	cred, err := DeriveFragmentCredential(fragment)
	if err != nil {
		return r.failed(0, err)
	}
	return r.resolve(ctx, establisher, cred)
}

func (r *Resolver) resolve(ctx context.Context, establisher SessionEstablisher, cred Credential) Resolution {
	switch c := cred.(type) {
	case OtpTokenHash:
		session, err := establisher.VerifyOtp(ctx, c.Hash, c.Type)
		if err != nil {
			return r.failed(c.Kind(), err)
		}
		purpose := PurposeGeneric
		if c.Type == identity.OtpRecovery {
			purpose = PurposeRecovery
		}
		return r.established(c.Kind(), purpose, session, c.Next)

	case AuthorizationCode:
		session, err := establisher.ExchangeCodeForSession(ctx, c.Code)
		if err != nil {
			return r.failed(c.Kind(), err)
		}
		purpose := PurposeGeneric
		if c.Type == string(identity.OtpRecovery) || r.targetsResetPassword(c.Next) {
			purpose = PurposeRecovery
		}
		return r.established(c.Kind(), purpose, session, c.Next)

	case ImplicitTokens:
		session, err := establisher.SetSession(ctx, c.AccessToken, c.RefreshToken)
		if err != nil {
			return r.failed(c.Kind(), err)
		}
		return r.established(c.Kind(), PurposeRecovery, session, "")

	default:
		return r.failed(0, fmt.Errorf("%w: unsupported credential %T", apperrors.ErrCredentialMalformed, cred))
	}
}

func (r *Resolver) established(kind CredentialKind, purpose Purpose, session *identity.Session, next string) Resolution {
	redirect := SafeRedirectTarget(next, r.paths.Home)
	if purpose == PurposeRecovery {
		redirect = r.paths.ResetPassword + "?verified=true"
	}
	return Resolution{
		Outcome:  OutcomeEstablished,
		Purpose:  purpose,
		Kind:     kind,
		Session:  session,
		Redirect: redirect,
	}
}

func (r *Resolver) failed(kind CredentialKind, err error) Resolution {
	redirect := r.paths.AuthError
	if t := ErrorPageType(err); t != "" {
		redirect += "?type=" + url.QueryEscape(t)
	}
	return Resolution{
		Outcome:  OutcomeFailed,
		Kind:     kind,
		Redirect: redirect,
		Err:      err,
	}
}

func (r *Resolver) targetsResetPassword(next string) bool {
	target := SafeRedirectTarget(next, "")
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Path == r.paths.ResetPassword
}

// ErrorPageType maps a resolution error to the hint shown on the error page.
func ErrorPageType(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrCredentialExpiredOrUsed):
		return "expired"
	case apperrors.Is(err, apperrors.ErrCredentialMalformed):
		return "invalid"
	default:
		return ""
	}
}
