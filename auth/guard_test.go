package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/ir-portal/auth"
	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func newGuard() *auth.Guard {
	return auth.NewGuard(auth.DefaultGuardConfig(auth.DefaultPaths()))
}

func withSession() getterFunc {
	return func(context.Context) (*identity.Session, error) {
		return identity.NewSession("access", "bearer", "refresh", time.Now().Add(time.Hour), identity.User{ID: "user-1"}), nil
	}
}

func withoutSession() getterFunc {
	return func(context.Context) (*identity.Session, error) { return nil, nil }
}

func failingLookup() getterFunc {
	return func(context.Context) (*identity.Session, error) { return nil, apperrors.ErrSessionLookupFailed }
}

func TestGuard_Classify(t *testing.T) {
	tests := []struct {
		path     string
		expected auth.Classification
	}{
		{path: "/", expected: auth.Protected},
		{path: "", expected: auth.Protected},
		{path: "/documents/annual-report", expected: auth.Protected},
		{path: "/api/me", expected: auth.Protected},
		{path: "/login", expected: auth.AuthOnly},
		{path: "/login/", expected: auth.AuthOnly},
		{path: "/login-help", expected: auth.Protected},
		{path: "/reset-password", expected: auth.Public},
		{path: "/reset-passwordx", expected: auth.Protected},
		{path: "/auth/callback", expected: auth.Public},
		{path: "/auth/callback/session", expected: auth.Public},
		{path: "/auth/auth-code-error", expected: auth.Public},
		{path: "/forgot-password", expected: auth.Public},
		{path: "/static/callback.js", expected: auth.Public},
		{path: "/static/../documents", expected: auth.Protected},
		{path: "//static/app.css", expected: auth.Public},
	}

	guard := newGuard()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.expected, guard.Classify(tt.path))
		})
	}
}

func TestGuard_PublicPathsNeverLookUpTheSession(t *testing.T) {
	guard := newGuard()
	called := 0
	getter := getterFunc(func(context.Context) (*identity.Session, error) {
		called++
		return nil, apperrors.ErrSessionLookupFailed
	})

	for _, p := range []string{"/reset-password", "/auth/callback", "/forgot-password", "/auth/auth-code-error", "/static/app.css"} {
		decision := guard.Decide(context.Background(), p, getter)
		require.True(t, decision.Allowed(), p)
		require.Equal(t, auth.Public, decision.Classification)
	}
	require.Zero(t, called)
}

func TestGuard_Decide(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		getter       getterFunc
		expectAction auth.Action
		expectTarget string
	}{
		{name: "protected without session", path: "/", getter: withoutSession(), expectAction: auth.ActionRedirect, expectTarget: "/login"},
		{name: "nested protected without session", path: "/documents/q3", getter: withoutSession(), expectAction: auth.ActionRedirect, expectTarget: "/login"},
		{name: "protected with session", path: "/documents/q3", getter: withSession(), expectAction: auth.ActionAllow},
		{name: "protected when lookup fails", path: "/", getter: failingLookup(), expectAction: auth.ActionRedirect, expectTarget: "/login"},
		{name: "auth-only with session", path: "/login", getter: withSession(), expectAction: auth.ActionRedirect, expectTarget: "/"},
		{name: "auth-only without session", path: "/login", getter: withoutSession(), expectAction: auth.ActionAllow},
		{name: "auth-only when lookup fails", path: "/login", getter: failingLookup(), expectAction: auth.ActionAllow},
		{name: "public with session", path: "/reset-password", getter: withSession(), expectAction: auth.ActionAllow},
	}

	guard := newGuard()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := guard.Decide(context.Background(), tt.path, tt.getter)
			require.Equal(t, tt.expectAction, decision.Action)
			require.Equal(t, tt.expectTarget, decision.Target)
		})
	}
}

func TestGuard_ReportsLookupFailure(t *testing.T) {
	decision := newGuard().Decide(context.Background(), "/", failingLookup())
	require.False(t, decision.Allowed())
	require.ErrorIs(t, decision.LookupErr, apperrors.ErrSessionLookupFailed)
}

func TestGuard_ZeroDecisionIsNotAllow(t *testing.T) {
	var decision auth.Decision
	require.False(t, decision.Allowed())
	require.Equal(t, auth.Protected, auth.Classification(0))
}

func TestGuard_RefreshesExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.saveSession(t, -time.Minute)

	decision := newGuard().Decide(context.Background(), "/", h.client)

	require.True(t, decision.Allowed())
	require.Equal(t, 1, h.provider.Calls("RefreshSession"))
	require.True(t, h.sessionCookieWritten())
}

func TestGuard_RevokedSessionRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	session := h.saveSession(t, -time.Minute)
	require.NoError(t, h.provider.SignOut(context.Background(), session.AccessToken()))

	decision := newGuard().Decide(context.Background(), "/", h.client)

	require.False(t, decision.Allowed())
	require.Equal(t, "/login", decision.Target)
	require.NoError(t, decision.LookupErr)
	require.True(t, h.sessionCookieDeleted())
}
