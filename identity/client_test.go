package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

const testAnonKey = "anon-key"

type recordedRequest struct {
	Method        string
	Path          string
	Query         string
	APIKey        string
	Authorization string
	Body          map[string]string
}

// newTestProvider starts a server that records the request and replies with status/response.
func newTestProvider(t *testing.T, status int, response any) (*identity.Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.RawQuery
		rec.APIKey = r.Header.Get("apikey")
		rec.Authorization = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			_ = json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(srv.Close)
	return identity.NewClient(srv.URL, testAnonKey, 5*time.Second), rec
}

func sessionPayload(expiresAt int64) map[string]any {
	return map[string]any{
		"access_token":  "access-1",
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    expiresAt,
		"refresh_token": "refresh-1",
		"user":          map[string]any{"id": "user-1", "email": "investor@example.com"},
	}
}

func TestClient_VerifyOtp(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Unix()
	client, rec := newTestProvider(t, http.StatusOK, sessionPayload(expiresAt))

	session, err := client.VerifyOtp(context.Background(), "hash-1", identity.OtpRecovery)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, rec.Method)
	require.Equal(t, "/auth/v1/verify", rec.Path)
	require.Equal(t, testAnonKey, rec.APIKey)
	require.Equal(t, "hash-1", rec.Body["token_hash"])
	require.Equal(t, "recovery", rec.Body["type"])

	require.Equal(t, "access-1", session.AccessToken())
	require.Equal(t, "refresh-1", session.RefreshToken())
	require.Equal(t, "user-1", session.Subject())
	require.Equal(t, expiresAt, session.Expiry().Unix())
	require.True(t, session.Valid())
}

func TestClient_VerifyOtp_RejectsUnknownTypeWithoutCalling(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusOK, sessionPayload(0))

	_, err := client.VerifyOtp(context.Background(), "hash-1", identity.OtpType("bogus"))
	require.ErrorIs(t, err, apperrors.ErrCredentialMalformed)
	require.Empty(t, rec.Path)
}

func TestClient_ExchangeCodeForSession(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusOK, sessionPayload(0))

	session, err := client.ExchangeCodeForSession(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	require.Equal(t, "/auth/v1/token", rec.Path)
	require.Equal(t, "grant_type=pkce", rec.Query)
	require.Equal(t, "code-1", rec.Body["auth_code"])
	require.Equal(t, "verifier-1", rec.Body["code_verifier"])
	// expires_in is used when expires_at is absent
	require.WithinDuration(t, time.Now().Add(time.Hour), session.Expiry(), 5*time.Second)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		expected error
	}{
		{
			name:     "expired otp",
			status:   http.StatusForbidden,
			body:     map[string]any{"code": 403, "error_code": "otp_expired", "msg": "Email link is invalid or has expired"},
			expected: apperrors.ErrCredentialExpiredOrUsed,
		},
		{
			name:     "consumed code",
			status:   http.StatusNotFound,
			body:     map[string]any{"code": 404, "error_code": "flow_state_not_found", "msg": "invalid flow state"},
			expected: apperrors.ErrCredentialExpiredOrUsed,
		},
		{
			name:     "legacy refresh failure",
			status:   http.StatusBadRequest,
			body:     map[string]any{"error": "invalid_grant", "error_description": "Invalid Refresh Token: Already Used"},
			expected: apperrors.ErrCredentialExpiredOrUsed,
		},
		{
			name:     "malformed request",
			status:   http.StatusBadRequest,
			body:     map[string]any{"code": 400, "error_code": "validation_failed", "msg": "bad input"},
			expected: apperrors.ErrCredentialMalformed,
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     nil,
			expected: apperrors.ErrProviderUnavailable,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     map[string]any{"code": 429, "error_code": "over_request_rate_limit", "msg": "slow down"},
			expected: apperrors.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestProvider(t, tt.status, tt.body)
			_, err := client.ExchangeCodeForSession(context.Background(), "code", "verifier")
			require.ErrorIs(t, err, tt.expected)

			var perr *identity.ProviderError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.status, perr.StatusCode)
		})
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := identity.NewClient(srv.URL, testAnonKey, time.Second)

	_, err := client.RefreshSession(context.Background(), "refresh-1")
	require.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestClient_RefreshSession_RequiresToken(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusOK, sessionPayload(0))
	_, err := client.RefreshSession(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrCredentialMalformed)
	require.Empty(t, rec.Path)
}

func TestClient_GetUser_SendsBearer(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusOK, map[string]any{"id": "user-1", "email": "investor@example.com"})

	user, err := client.GetUser(context.Background(), "access-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, http.MethodGet, rec.Method)
	require.Equal(t, "Bearer access-1", rec.Authorization)
}

func TestClient_ResetPasswordForEmail(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusOK, map[string]any{})

	err := client.ResetPasswordForEmail(context.Background(), "investor@example.com", "http://portal/auth/callback?next=%2Freset-password", "challenge-1")
	require.NoError(t, err)
	require.Equal(t, "/auth/v1/recover", rec.Path)
	require.Contains(t, rec.Query, "redirect_to=")
	require.Equal(t, "challenge-1", rec.Body["code_challenge"])
	require.Equal(t, "s256", rec.Body["code_challenge_method"])
}

func TestClient_SignOut_TreatsMissingSessionAsSignedOut(t *testing.T) {
	client, rec := newTestProvider(t, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "session_not_found", "msg": "gone"})

	require.NoError(t, client.SignOut(context.Background(), "access-1"))
	require.Equal(t, "/auth/v1/logout", rec.Path)
	require.Equal(t, "scope=local", rec.Query)
}
