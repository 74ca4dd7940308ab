package fakeprovider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/ir-portal/identity"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*FakeProvider)(nil)

// Issuer is the iss claim of tokens minted by the fake
const Issuer = "http://fake-provider/auth/v1"

type fakeUser struct {
	user     identity.User
	password string
}

type pendingCode struct {
	email     string
	challenge string
}

type pendingHash struct {
	email   string
	otpType identity.OtpType
}

// RecoveryMail is a password-reset email the fake would have sent
type RecoveryMail struct {
	Email      string
	RedirectTo string
	Code       string
}

// FakeProvider is an in-memory identity provider. Codes, token hashes and
// refresh tokens are single-use, like the real provider's.
type FakeProvider struct {
	lock sync.Mutex

	users         map[string]*fakeUser // email -> user
	codes         map[string]pendingCode
	tokenHashes   map[string]pendingHash
	refreshTokens map[string]string // refresh token -> email
	accessTokens  map[string]string // access token -> email

	unavailable    bool
	accessTokenTTL time.Duration
	calls          map[string]int
	outbox         []RecoveryMail
}

func New() *FakeProvider {
	return &FakeProvider{
		users:          make(map[string]*fakeUser),
		codes:          make(map[string]pendingCode),
		tokenHashes:    make(map[string]pendingHash),
		refreshTokens:  make(map[string]string),
		accessTokens:   make(map[string]string),
		accessTokenTTL: time.Hour,
		calls:          make(map[string]int),
	}
}

// AddUser registers a user and returns its id
func (p *FakeProvider) AddUser(email, password string) string {
	p.lock.Lock()
	defer p.lock.Unlock()
	id := uuid.NewString()
	p.users[email] = &fakeUser{user: identity.User{ID: id, Email: email, Role: "authenticated"}, password: password}
	return id
}

// SetUnavailable makes every call fail as if the provider were down
func (p *FakeProvider) SetUnavailable(unavailable bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.unavailable = unavailable
}

// SetAccessTokenTTL changes the lifetime of tokens minted from now on
func (p *FakeProvider) SetAccessTokenTTL(ttl time.Duration) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.accessTokenTTL = ttl
}

// Calls returns how many times the named operation was invoked
func (p *FakeProvider) Calls(op string) int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.calls[op]
}

// IssueCode creates a single-use authorization code. An empty verifier skips the PKCE check.
func (p *FakeProvider) IssueCode(email, codeVerifier string) string {
	p.lock.Lock()
	defer p.lock.Unlock()
	code := randomString()
	challenge := ""
	if codeVerifier != "" {
		challenge = oauth2.S256ChallengeFromVerifier(codeVerifier)
	}
	p.codes[code] = pendingCode{email: email, challenge: challenge}
	return code
}

// IssueTokenHash creates a single-use OTP token hash
func (p *FakeProvider) IssueTokenHash(email string, otpType identity.OtpType) string {
	p.lock.Lock()
	defer p.lock.Unlock()
	hash := randomString()
	p.tokenHashes[hash] = pendingHash{email: email, otpType: otpType}
	return hash
}

// IssueSession mints a session directly, as an implicit-grant redirect would deliver it
func (p *FakeProvider) IssueSession(email string) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.mintSession(email)
}

// ConsumeTokenHash marks a token hash as used without establishing a session
func (p *FakeProvider) ConsumeTokenHash(hash string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.tokenHashes, hash)
}

// Outbox returns the recovery emails sent so far
func (p *FakeProvider) Outbox() []RecoveryMail {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]RecoveryMail(nil), p.outbox...)
}

// Password returns the current password of a user
func (p *FakeProvider) Password(email string) string {
	p.lock.Lock()
	defer p.lock.Unlock()
	if u, ok := p.users[email]; ok {
		return u.password
	}
	return ""
}

func (p *FakeProvider) ExchangeCodeForSession(_ context.Context, authCode, codeVerifier string) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("ExchangeCodeForSession"); err != nil {
		return nil, err
	}
	pending, ok := p.codes[authCode]
	if !ok {
		return nil, identity.NewProviderError(http.StatusNotFound, "flow_state_not_found", "invalid flow state, no valid flow state found")
	}
	if pending.challenge != "" && oauth2.S256ChallengeFromVerifier(codeVerifier) != pending.challenge {
		return nil, identity.NewProviderError(http.StatusBadRequest, "bad_code_verifier", "code challenge does not match previously saved code verifier")
	}
	delete(p.codes, authCode)
	return p.mintSession(pending.email)
}

func (p *FakeProvider) VerifyOtp(_ context.Context, tokenHash string, otpType identity.OtpType) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("VerifyOtp"); err != nil {
		return nil, err
	}
	pending, ok := p.tokenHashes[tokenHash]
	if !ok || pending.otpType != otpType {
		return nil, identity.NewProviderError(http.StatusForbidden, "otp_expired", "Email link is invalid or has expired")
	}
	delete(p.tokenHashes, tokenHash)
	return p.mintSession(pending.email)
}

func (p *FakeProvider) RefreshSession(_ context.Context, refreshToken string) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("RefreshSession"); err != nil {
		return nil, err
	}
	email, ok := p.refreshTokens[refreshToken]
	if !ok {
		return nil, identity.NewProviderError(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
	}
	delete(p.refreshTokens, refreshToken)
	return p.mintSession(email)
}

func (p *FakeProvider) SignInWithPassword(_ context.Context, email, password string) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("SignInWithPassword"); err != nil {
		return nil, err
	}
	u, ok := p.users[email]
	if !ok || u.password != password {
		return nil, identity.NewProviderError(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	}
	return p.mintSession(email)
}

func (p *FakeProvider) GetUser(_ context.Context, accessToken string) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("GetUser"); err != nil {
		return nil, err
	}
	u, err := p.userForAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	user := u.user
	return &user, nil
}

func (p *FakeProvider) UpdateUser(_ context.Context, accessToken string, attrs identity.UserAttributes) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("UpdateUser"); err != nil {
		return nil, err
	}
	u, err := p.userForAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	if attrs.Password != "" {
		if attrs.Password == u.password {
			return nil, identity.NewProviderError(http.StatusUnprocessableEntity, "same_password", "New password should be different from the old password.")
		}
		u.password = attrs.Password
	}
	user := u.user
	return &user, nil
}

func (p *FakeProvider) ResetPasswordForEmail(_ context.Context, email, redirectTo, codeChallenge string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("ResetPasswordForEmail"); err != nil {
		return err
	}
	if _, ok := p.users[email]; !ok {
		// the real provider answers the same way for unknown addresses
		return nil
	}
	code := randomString()
	p.codes[code] = pendingCode{email: email, challenge: codeChallenge}
	p.outbox = append(p.outbox, RecoveryMail{Email: email, RedirectTo: redirectTo, Code: code})
	return nil
}

func (p *FakeProvider) SignOut(_ context.Context, accessToken string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enter("SignOut"); err != nil {
		return err
	}
	email, ok := p.accessTokens[accessToken]
	if !ok {
		return nil
	}
	for token, e := range p.accessTokens {
		if e == email {
			delete(p.accessTokens, token)
		}
	}
	for token, e := range p.refreshTokens {
		if e == email {
			delete(p.refreshTokens, token)
		}
	}
	return nil
}

func (p *FakeProvider) enter(op string) error {
	p.calls[op]++
	if p.unavailable {
		return identity.NewProviderError(http.StatusServiceUnavailable, "", "service unavailable")
	}
	return nil
}

func (p *FakeProvider) userForAccessToken(accessToken string) (*fakeUser, error) {
	email, ok := p.accessTokens[accessToken]
	if !ok {
		return nil, identity.NewProviderError(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}
	u, ok := p.users[email]
	if !ok {
		return nil, identity.NewProviderError(http.StatusNotFound, "user_not_found", "User not found")
	}
	return u, nil
}

func (p *FakeProvider) mintSession(email string) (*identity.Session, error) {
	u, ok := p.users[email]
	if !ok {
		return nil, identity.NewProviderError(http.StatusNotFound, "user_not_found", "User not found")
	}
	expiry := time.Now().Add(p.accessTokenTTL).Truncate(time.Second)
	access, err := MintAccessToken(u.user, expiry)
	if err != nil {
		return nil, errors.Wrap(err, "mintSession MintAccessToken")
	}
	refresh := randomString()
	p.accessTokens[access] = email
	p.refreshTokens[refresh] = email
	return identity.NewSession(access, "bearer", refresh, expiry, u.user), nil
}

// MintAccessToken signs an RS256 access token for user in the provider's claim layout
func MintAccessToken(user identity.User, expiry time.Time) (string, error) {
	claims := identity.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
		Email:     user.Email,
		Role:      "authenticated",
		SessionID: uuid.NewString(),
	}
	kp, err := keys()
	if err != nil {
		return "", errors.Wrap(err, "MintAccessToken keys")
	}
	signed, err := kp.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "MintAccessToken Sign")
	}
	return signed, nil
}

func randomString() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
