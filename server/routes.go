package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, s.LoginPageHandler())
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.SameOriginMiddleware))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.SameOriginMiddleware))

	// Provider redirects
	s.RegisterRouteFunc("GET "+RouteCallback, s.AuthCallbackHandler())
	s.RegisterRouteFunc("POST "+RouteCallbackSession, s.AuthCallbackSessionHandler())
	s.RegisterRouteFunc("GET "+RouteAuthCodeError, s.AuthCodeErrorHandler())

	// Password recovery
	s.RegisterRouteFunc("GET "+RouteForgotPassword, s.ForgotPasswordGetHandler())
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPostHandler(), s.SameOriginMiddleware))
	s.RegisterRouteFunc("GET "+RouteResetPassword, s.ResetPasswordGetHandler())
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPostHandler(), s.SameOriginMiddleware))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIMe, ChainMiddleware(func(http.ResponseWriter, *http.Request) {}, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := r.PathValue("file")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Str("file", filePath).Msg("static file not served")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
