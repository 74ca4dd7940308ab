package sessions

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gsessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
	"github.com/jrsteele09/ir-portal/identity"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

const (
	// chunkSize keeps each cookie comfortably below the 4KB browser limit
	chunkSize = 3180
	maxChunks = 8

	codeVerifierSuffix = "-code-verifier"
	codeVerifierMaxAge = 10 * time.Minute
)

// Options configure the session cookies
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Store keeps the provider session in signed and encrypted cookies.
type Store struct {
	codec           *securecookie.SecureCookie
	name            string
	options         *gsessions.Options
	verifierOptions *gsessions.Options
}

// storedSession is the cookie payload
type storedSession struct {
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt"`
	TokenType    string `json:"tt,omitempty"`
	ExpiresAt    int64  `json:"exp"`
	UserID       string `json:"uid"`
	Email        string `json:"em,omitempty"`
}

func NewStore(secret []byte, opts Options) (*Store, error) {
	if opts.CookieName == "" {
		return nil, fmt.Errorf("[sessions NewStore] cookie name is required")
	}
	hashKey, blockKey, err := DeriveKeys(secret)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewStore] %w", err)
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxLength(chunkSize * maxChunks)
	codec.MaxAge(int(opts.MaxAge.Seconds()))

	return &Store{
		codec: codec,
		name:  opts.CookieName,
		options: &gsessions.Options{
			Path:     "/",
			MaxAge:   int(opts.MaxAge.Seconds()),
			Secure:   opts.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		verifierOptions: &gsessions.Options{
			Path:     "/",
			MaxAge:   int(codeVerifierMaxAge.Seconds()),
			Secure:   opts.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}, nil
}

// CookieName is the base name of the session cookie
func (s *Store) CookieName() string {
	return s.name
}

// Load reads the session from the jar. A missing or undecodable cookie yields
// ErrSessionNotFound; undecodable cookies are also cleared.
func (s *Store) Load(j *Jar) (*identity.Session, error) {
	encoded, ok := s.read(j)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	var stored storedSession
	if err := s.codec.Decode(s.name, encoded, &stored); err != nil {
		s.Clear(j)
		return nil, fmt.Errorf("%w: decode cookie: %v", apperrors.ErrSessionNotFound, err)
	}
	if stored.AccessToken == "" {
		s.Clear(j)
		return nil, apperrors.ErrSessionNotFound
	}
	user := identity.User{ID: stored.UserID, Email: stored.Email}
	return identity.NewSession(stored.AccessToken, stored.TokenType, stored.RefreshToken, time.Unix(stored.ExpiresAt, 0), user), nil
}

// Save queues the session cookie(s) on the jar.
func (s *Store) Save(j *Jar, session *identity.Session) error {
	if session == nil || session.AccessToken() == "" {
		return fmt.Errorf("[sessions Save] %w: empty session", apperrors.ErrInvalidRequest)
	}
	stored := storedSession{
		AccessToken:  session.AccessToken(),
		RefreshToken: session.RefreshToken(),
		TokenType:    session.Token.TokenType,
		ExpiresAt:    session.Expiry().Unix(),
		UserID:       session.User.ID,
		Email:        session.User.Email,
	}
	encoded, err := s.codec.Encode(s.name, stored)
	if err != nil {
		return fmt.Errorf("[sessions Save] encode cookie: %w", err)
	}
	s.write(j, encoded)
	return nil
}

// Clear queues deletion of the session cookie and all of its chunks.
func (s *Store) Clear(j *Jar) {
	for _, name := range s.cookieNames(j) {
		j.Delete(name, s.options.Path)
	}
}

// SaveCodeVerifier stores the PKCE verifier until the provider redirects back.
func (s *Store) SaveCodeVerifier(j *Jar, verifier string) error {
	encoded, err := s.codec.Encode(s.verifierName(), verifier)
	if err != nil {
		return fmt.Errorf("[sessions SaveCodeVerifier] encode cookie: %w", err)
	}
	j.Set(gsessions.NewCookie(s.verifierName(), encoded, s.verifierOptions))
	return nil
}

// LoadCodeVerifier returns the stored PKCE verifier or "".
func (s *Store) LoadCodeVerifier(j *Jar) string {
	encoded, ok := j.Get(s.verifierName())
	if !ok {
		return ""
	}
	var verifier string
	if err := s.codec.Decode(s.verifierName(), encoded, &verifier); err != nil {
		return ""
	}
	return verifier
}

func (s *Store) ClearCodeVerifier(j *Jar) {
	if _, ok := j.Get(s.verifierName()); ok {
		j.Delete(s.verifierName(), s.verifierOptions.Path)
	}
}

func (s *Store) verifierName() string {
	return s.name + codeVerifierSuffix
}

func (s *Store) chunkName(i int) string {
	return s.name + "." + strconv.Itoa(i)
}

func (s *Store) read(j *Jar) (string, bool) {
	if v, ok := j.Get(s.name); ok && v != "" {
		return v, true
	}
	var b strings.Builder
	for i := 0; i < maxChunks; i++ {
		v, ok := j.Get(s.chunkName(i))
		if !ok {
			break
		}
		b.WriteString(v)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func (s *Store) write(j *Jar, encoded string) {
	written := make(map[string]struct{})
	if len(encoded) <= chunkSize {
		j.Set(gsessions.NewCookie(s.name, encoded, s.options))
		written[s.name] = struct{}{}
	} else {
		for i := 0; len(encoded) > 0; i++ {
			n := min(chunkSize, len(encoded))
			name := s.chunkName(i)
			j.Set(gsessions.NewCookie(name, encoded[:n], s.options))
			written[name] = struct{}{}
			encoded = encoded[n:]
		}
	}
	// drop leftovers of a previous value with a different layout
	for _, name := range s.cookieNames(j) {
		if _, ok := written[name]; !ok {
			j.Delete(name, s.options.Path)
		}
	}
}

// cookieNames lists the visible cookies belonging to the session
func (s *Store) cookieNames(j *Jar) []string {
	var names []string
	for _, name := range j.Names() {
		if name == s.name || strings.HasPrefix(name, s.name+".") {
			if _, ok := j.Get(name); ok {
				names = append(names, name)
			}
		}
	}
	return names
}
