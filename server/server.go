package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/ir-portal/auth"
	"github.com/jrsteele09/ir-portal/identity"
	"github.com/jrsteele09/ir-portal/internal/config"
	"github.com/jrsteele09/ir-portal/sessions"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	handler   http.HandlerFunc
	routes    []string
	config    config.Config
	provider  identity.Provider
	store     *sessions.Store
	inspector identity.TokenInspector
	paths     auth.Paths
	resolver  *auth.Resolver
	guard     *auth.Guard
}

// New builds the portal server. inspector may be nil to skip token signature checks.
func New(config config.Config, provider identity.Provider, store *sessions.Store, inspector identity.TokenInspector) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("[Server New] identity provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[Server New] session store is required")
	}

	paths := auth.Paths{
		Home:          RouteHome,
		Login:         RouteLogin,
		ResetPassword: RouteResetPassword,
		AuthError:     RouteAuthCodeError,
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		provider:  provider,
		store:     store,
		inspector: inspector,
		paths:     paths,
		resolver:  auth.NewResolver(paths),
		guard:     auth.NewGuard(auth.DefaultGuardConfig(paths)),
	}

	s.initRoutes()
	s.logRoutes()

	s.handler = ChainMiddleware(s.mux.ServeHTTP,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
		s.SessionMiddleware,
	)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
