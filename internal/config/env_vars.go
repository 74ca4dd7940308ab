package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppName  string `env:"APP_NAME" envDefault:"Investor Portal"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// BaseURL is the public origin of the portal, used for reset links and same-origin checks
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	if !strings.HasPrefix(e.Port, ":") {
		return fmt.Sprintf(":%s", e.Port)
	}
	return e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}
