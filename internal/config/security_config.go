package config

import (
	"fmt"
	"time"
)

// MinCookieSecretLength is the minimum accepted COOKIE_SECRET length in bytes
const MinCookieSecretLength = 32

// devCookieSecret is only accepted when ENV=DEV
const devCookieSecret = "dev-only-cookie-secret-change-me-please"

type SecurityConfig interface {
	GetCookieSecret() []byte
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
}

type Security struct {
	CookieSecret      string        `env:"COOKIE_SECRET"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"ir-auth-token"`
	MaxSessionAge     time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`
}

var _ SecurityConfig = Security{}

func (s *Security) validate(environment string) error {
	if s.CookieSecret == "" && environment == "DEV" {
		s.CookieSecret = devCookieSecret
	}
	if len(s.CookieSecret) < MinCookieSecretLength {
		return fmt.Errorf("COOKIE_SECRET must be at least %d bytes", MinCookieSecretLength)
	}
	return nil
}

func (s Security) GetCookieSecret() []byte {
	return []byte(s.CookieSecret)
}

func (s Security) GetSessionCookieName() string {
	return s.SessionCookieName
}

func (s Security) GetMaxSessionAge() time.Duration {
	return s.MaxSessionAge
}
