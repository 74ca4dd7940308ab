package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/ir-portal/identity"
	"github.com/jrsteele09/ir-portal/internal/config"
	"github.com/jrsteele09/ir-portal/server"
	"github.com/jrsteele09/ir-portal/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	configureLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := buildServer(ctx, c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func buildServer(ctx context.Context, c config.Config) (*server.Server, error) {
	provider := identity.NewClient(c.GetProviderURL(), c.GetProviderAnonKey(), c.GetProviderTimeout())

	var inspector identity.TokenInspector = identity.UnverifiedParser{}
	if c.GetVerifyJWT() {
		inspector = identity.NewOIDCVerifier(ctx, provider.Issuer(), provider.JWKSURL(), c.GetJWTAudience())
	}

	store, err := sessions.NewStore(c.GetCookieSecret(), sessions.Options{
		CookieName: c.GetSessionCookieName(),
		MaxAge:     c.GetMaxSessionAge(),
		Secure:     strings.HasPrefix(c.GetBaseURL(), "https://"),
	})
	if err != nil {
		return nil, fmt.Errorf("[main buildServer] %w", err)
	}

	s, err := server.New(c, provider, store, inspector)
	if err != nil {
		return nil, fmt.Errorf("[main buildServer] %w", err)
	}
	return s, nil
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("app", c.GetAppName()).Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
