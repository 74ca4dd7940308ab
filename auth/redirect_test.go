package auth_test

import (
	"testing"

	"github.com/jrsteele09/ir-portal/auth"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidateRedirectTarget(t *testing.T) {
	tests := []struct {
		target string
		ok     bool
	}{
		{target: "/", ok: true},
		{target: "/documents", ok: true},
		{target: "/documents?year=2024#notes", ok: true},
		{target: "", ok: false},
		{target: "documents", ok: false},
		{target: "https://evil.example/x", ok: false},
		{target: "//evil.example/x", ok: false},
		{target: "/\\evil.example", ok: false},
		{target: "/docs\\..\\x", ok: false},
		{target: "/docs\r\nSet-Cookie: a=b", ok: false},
		{target: "javascript:alert(1)", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			err := auth.ValidateRedirectTarget(tt.target)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrOpenRedirectRejected)
		})
	}
}

func TestSafeRedirectTarget(t *testing.T) {
	require.Equal(t, "/", auth.SafeRedirectTarget("https://evil.example/x", "/"))
	require.Equal(t, "/documents?year=2024", auth.SafeRedirectTarget("/documents?year=2024#notes", "/"))
	require.Equal(t, "/home", auth.SafeRedirectTarget("", "/home"))
}
