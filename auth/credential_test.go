package auth_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/ir-portal/auth"
	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestDeriveCredential(t *testing.T) {
	tests := []struct {
		name        string
		query       url.Values
		expected    auth.Credential
		expectedErr error
	}{
		{
			name:     "token hash",
			query:    url.Values{"token_hash": {"h1"}, "type": {"recovery"}, "next": {"/x"}},
			expected: auth.OtpTokenHash{Hash: "h1", Type: identity.OtpRecovery, Next: "/x"},
		},
		{
			name:     "legacy token param",
			query:    url.Values{"token": {"h1"}, "type": {"signup"}},
			expected: auth.OtpTokenHash{Hash: "h1", Type: identity.OtpSignup},
		},
		{
			name:     "token hash wins over code",
			query:    url.Values{"token_hash": {"h1"}, "type": {"magiclink"}, "code": {"c1"}},
			expected: auth.OtpTokenHash{Hash: "h1", Type: identity.OtpMagicLink},
		},
		{
			name:     "token hash without type falls back to code",
			query:    url.Values{"token_hash": {"h1"}, "code": {"c1"}},
			expected: auth.AuthorizationCode{Code: "c1"},
		},
		{
			name:     "code",
			query:    url.Values{"code": {"c1"}, "type": {"recovery"}, "next": {"/reset-password"}},
			expected: auth.AuthorizationCode{Code: "c1", Type: "recovery", Next: "/reset-password"},
		},
		{
			name:        "unknown otp type",
			query:       url.Values{"token_hash": {"h1"}, "type": {"bogus"}},
			expectedErr: apperrors.ErrCredentialMalformed,
		},
		{
			name:        "provider error",
			query:       url.Values{"error": {"access_denied"}, "error_code": {"otp_expired"}},
			expectedErr: apperrors.ErrCredentialExpiredOrUsed,
		},
		{
			name:        "nothing",
			query:       url.Values{},
			expectedErr: apperrors.ErrNoCredentialPresented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := auth.DeriveCredential(tt.query)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Nil(t, cred)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, cred)
		})
	}
}

func TestDeriveFragmentCredential(t *testing.T) {
	cred, err := auth.DeriveFragmentCredential(url.Values{
		"access_token":  {"at"},
		"refresh_token": {"rt"},
		"type":          {"recovery"},
	})
	require.NoError(t, err)
	require.Equal(t, auth.ImplicitTokens{AccessToken: "at", RefreshToken: "rt", Type: "recovery"}, cred)
	require.Equal(t, auth.KindImplicitTokens, cred.Kind())

	_, err = auth.DeriveFragmentCredential(url.Values{"access_token": {"at"}, "type": {"invite"}})
	require.ErrorIs(t, err, apperrors.ErrCredentialMalformed)

	_, err = auth.DeriveFragmentCredential(url.Values{"error_code": {"otp_expired"}})
	require.ErrorIs(t, err, apperrors.ErrCredentialExpiredOrUsed)
}
