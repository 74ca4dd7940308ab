package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/ir-portal/auth"
	"github.com/jrsteele09/ir-portal/identity"
	"github.com/jrsteele09/ir-portal/identity/fakeprovider"
	"github.com/jrsteele09/ir-portal/sessions"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "investor@example.com"
	testPassword = "correct-horse"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

type harness struct {
	provider *fakeprovider.FakeProvider
	store    *sessions.Store
	jar      *sessions.Jar
	client   *auth.SessionClient
	userID   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := sessions.NewStore([]byte(testSecret), sessions.Options{CookieName: "ir-auth-token", MaxAge: time.Hour})
	require.NoError(t, err)

	provider := fakeprovider.New()
	h := &harness{
		provider: provider,
		store:    store,
		userID:   provider.AddUser(testEmail, testPassword),
	}
	h.reset(newRequest())
	return h
}

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

func (h *harness) reset(r *http.Request) {
	h.jar = sessions.NewJar(r)
	h.client = auth.NewSessionClient(h.provider, h.store, h.jar, identity.UnverifiedParser{})
}

// nextRequest carries the cookies written so far into a fresh request, as a browser would
func (h *harness) nextRequest(t *testing.T) {
	t.Helper()
	w := httptest.NewRecorder()
	h.jar.Apply(w)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			next.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	h.reset(next)
}

// saveSession mints a session with the given token lifetime and stores it in the jar
func (h *harness) saveSession(t *testing.T, ttl time.Duration) *identity.Session {
	t.Helper()
	h.provider.SetAccessTokenTTL(ttl)
	defer h.provider.SetAccessTokenTTL(time.Hour)

	session, err := h.provider.IssueSession(testEmail)
	require.NoError(t, err)
	require.NoError(t, h.store.Save(h.jar, session))
	h.nextRequest(t)
	return session
}

func (h *harness) sessionCookieWritten() bool {
	for _, c := range h.jar.Pending() {
		if c.Name == h.store.CookieName() && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func (h *harness) sessionCookieDeleted() bool {
	for _, c := range h.jar.Pending() {
		if c.Name == h.store.CookieName() && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

type getterFunc func(ctx context.Context) (*identity.Session, error)

func (f getterFunc) GetSession(ctx context.Context) (*identity.Session, error) {
	return f(ctx)
}
