package config

import (
	"strings"
	"time"
)

type IdentityConfig interface {
	GetProviderURL() string
	GetProviderAnonKey() string
	GetProviderTimeout() time.Duration
	GetJWTAudience() string
	GetVerifyJWT() bool
}

// Identity holds the hosted identity provider settings
type Identity struct {
	ProviderURL     string        `env:"IDENTITY_PROVIDER_URL" envDefault:"http://localhost:54321"`
	ProviderAnonKey string        `env:"IDENTITY_PROVIDER_ANON_KEY"`
	ProviderTimeout time.Duration `env:"IDENTITY_PROVIDER_TIMEOUT" envDefault:"10s"`
	JWTAudience     string        `env:"IDENTITY_JWT_AUDIENCE" envDefault:"authenticated"`
	VerifyJWT       bool          `env:"IDENTITY_VERIFY_JWT" envDefault:"false"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetProviderURL() string {
	return strings.TrimRight(i.ProviderURL, "/")
}

func (i Identity) GetProviderAnonKey() string {
	return i.ProviderAnonKey
}

func (i Identity) GetProviderTimeout() time.Duration {
	return i.ProviderTimeout
}

func (i Identity) GetJWTAudience() string {
	return i.JWTAudience
}

func (i Identity) GetVerifyJWT() bool {
	return i.VerifyJWT
}
