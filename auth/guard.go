package auth

import (
	"context"
	"path"
	"strings"
)

// Classification is the access class of a request path.
// The zero value is Protected, so unknown paths fail closed.
type Classification int

const (
	Protected Classification = iota
	Public
	AuthOnly
)

func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case AuthOnly:
		return "auth_only"
	default:
		return "protected"
	}
}

// Action is what the guard wants done with a request
type Action int

const (
	ActionAllow Action = iota + 1
	ActionRedirect
)

// Decision is the routing decision for one request.
type Decision struct {
	Action         Action
	Target         string
	Classification Classification
	// LookupErr is set when the session lookup failed and the request was
	// routed as if there were no session
	LookupErr error
}

func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// GuardConfig lists the path sets the guard classifies against
type GuardConfig struct {
	PublicPaths   []string
	AuthOnlyPaths []string
	LoginPath     string
	HomePath      string
}

// DefaultGuardConfig is the portal's routing policy.
func DefaultGuardConfig(paths Paths) GuardConfig {
	return GuardConfig{
		PublicPaths: []string{
			paths.ResetPassword,
			"/auth/callback",
			"/forgot-password",
			paths.AuthError,
			"/static",
		},
		AuthOnlyPaths: []string{paths.Login},
		LoginPath:     paths.Login,
		HomePath:      paths.Home,
	}
}

// Guard classifies paths and decides whether a request may proceed. It only
// does coarse routing; pages still authorize their own actions.
type Guard struct {
	cfg GuardConfig
}

func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Classify returns the class of p. Matching is by whole path segments, so
// "/login" covers "/login" and "/login/..." but not "/login-help".
func (g *Guard) Classify(p string) Classification {
	p = cleanPath(p)
	if matchesAny(p, g.cfg.PublicPaths) {
		return Public
	}
	if matchesAny(p, g.cfg.AuthOnlyPaths) {
		return AuthOnly
	}
	return Protected
}

// Decide applies the routing policy:
//  1. public paths are allowed without looking at the session
//  2. no session and not auth-only: redirect to login
//  3. session on an auth-only path: redirect home
//  4. otherwise allow
//
// A failed session lookup counts as no session.
func (g *Guard) Decide(ctx context.Context, p string, sessions SessionGetter) Decision {
	class := g.Classify(p)
	if class == Public {
		return Decision{Action: ActionAllow, Classification: class}
	}

	session, err := sessions.GetSession(ctx)
	hasSession := err == nil && session != nil

	switch {
	case !hasSession && class != AuthOnly:
		return Decision{Action: ActionRedirect, Target: g.cfg.LoginPath, Classification: class, LookupErr: err}
	case hasSession && class == AuthOnly:
		return Decision{Action: ActionRedirect, Target: g.cfg.HomePath, Classification: class}
	default:
		return Decision{Action: ActionAllow, Classification: class, LookupErr: err}
	}
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func matchesAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
