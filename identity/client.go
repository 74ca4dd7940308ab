package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

const (
	authPathPrefix = "/auth/v1"
	// maxErrorBody caps how much of an error response is read
	maxErrorBody = 64 << 10
)

var _ Provider = (*Client)(nil)

// Client talks to the provider's GoTrue-compatible auth REST API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a client for the provider at providerURL, e.g. "https://abc.supabase.co".
func NewClient(providerURL, anonKey string, timeout time.Duration) *Client {
	return NewClientWithHTTP(providerURL, anonKey, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client that uses the supplied http.Client.
func NewClientWithHTTP(providerURL, anonKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    providerURL + authPathPrefix,
		anonKey:    anonKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Issuer is the value the provider puts in the iss claim of its access tokens.
func (c *Client) Issuer() string {
	return c.baseURL
}

// JWKSURL is where the provider publishes its token signing keys.
func (c *Client) JWKSURL() string {
	return c.baseURL + "/.well-known/jwks.json"
}

// sessionResponse is the provider's token endpoint payload
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

func (r sessionResponse) session(now time.Time) (*Session, error) {
	if r.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider response carried no access token", apperrors.ErrCredentialMalformed)
	}
	expiry := now.Add(time.Duration(r.ExpiresIn) * time.Second)
	if r.ExpiresAt > 0 {
		expiry = time.Unix(r.ExpiresAt, 0)
	}
	return NewSession(r.AccessToken, r.TokenType, r.RefreshToken, expiry, r.User), nil
}

type errorResponse struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) codeAndMessage() (string, string) {
	code := e.ErrorCode
	if code == "" {
		code = e.Error
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = e.ErrorDescription
	}
	return code, msg
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	if authCode == "" {
		return nil, fmt.Errorf("%w: empty authorization code", apperrors.ErrCredentialMalformed)
	}
	body := map[string]string{"auth_code": authCode, "code_verifier": codeVerifier}
	return c.tokenGrant(ctx, "pkce", body)
}

func (c *Client) VerifyOtp(ctx context.Context, tokenHash string, otpType OtpType) (*Session, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("%w: empty token hash", apperrors.ErrCredentialMalformed)
	}
	if _, err := ParseOtpType(string(otpType)); err != nil {
		return nil, err
	}
	var resp sessionResponse
	body := map[string]string{"type": string(otpType), "token_hash": tokenHash}
	if err := c.do(ctx, http.MethodPost, "/verify", nil, "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(c.now())
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", apperrors.ErrCredentialMalformed)
	}
	return c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenGrant(ctx, "password", map[string]string{"email": email, "password": password})
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: provider returned a user without id", apperrors.ErrCredentialMalformed)
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/user", nil, accessToken, attrs, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo, codeChallenge string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	body := map[string]string{"email": email}
	if codeChallenge != "" {
		body["code_challenge"] = codeChallenge
		body["code_challenge_method"] = "s256"
	}
	return c.do(ctx, http.MethodPost, "/recover", query, "", body, nil)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout", url.Values{"scope": {"local"}}, accessToken, nil, nil)
	var perr *ProviderError
	if apperrors.As(err, &perr) && (perr.StatusCode == http.StatusUnauthorized || perr.StatusCode == http.StatusNotFound) {
		// the session is already gone on the provider side
		return nil
	}
	return err
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, body any) (*Session, error) {
	var resp sessionResponse
	query := url.Values{"grant_type": {grantType}}
	if err := c.do(ctx, http.MethodPost, "/token", query, "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(c.now())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[identity %s %s] marshal body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("[identity %s %s] build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %v", apperrors.ErrProviderUnavailable, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return NewProviderError(resp.StatusCode, "", http.StatusText(resp.StatusCode))
	}
	code, msg := body.codeAndMessage()
	return NewProviderError(resp.StatusCode, code, msg)
}
