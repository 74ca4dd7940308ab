package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/ir-portal/auth"
	"github.com/jrsteele09/ir-portal/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySessionClient stores the request's *auth.SessionClient
	ContextKeySessionClient ContextKey = "session_client"
)

// jarResponseWriter applies the request's pending cookies before the first
// header write, so handlers never have to remember to do it.
type jarResponseWriter struct {
	http.ResponseWriter
	jar *sessions.Jar
}

func (w *jarResponseWriter) WriteHeader(code int) {
	w.jar.Apply(w.ResponseWriter)
	w.ResponseWriter.WriteHeader(code)
}

func (w *jarResponseWriter) Write(b []byte) (int, error) {
	w.jar.Apply(w.ResponseWriter)
	return w.ResponseWriter.Write(b)
}

func (w *jarResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// SessionMiddleware binds a cookie jar and a session client to the request and
// runs the route guard before any handler.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jar := sessions.NewJar(r)
		jw := &jarResponseWriter{ResponseWriter: w, jar: jar}
		defer jar.Apply(w)

		client := auth.NewSessionClient(s.provider, s.store, jar, s.inspector)
		ctx := sessions.WithJar(r.Context(), jar)
		ctx = context.WithValue(ctx, ContextKeySessionClient, client)

		// Preflight requests carry no cookies; CORS handles them
		if r.Method == http.MethodOptions {
			next(jw, r.WithContext(ctx))
			return
		}

		decision := s.guard.Decide(ctx, r.URL.Path, client)
		logger := log.Ctx(ctx)
		if decision.LookupErr != nil {
			logger.Warn().Err(decision.LookupErr).Str("path", r.URL.Path).Msg("session lookup failed, continuing without session")
		}
		if !decision.Allowed() {
			logger.Debug().
				Str("path", r.URL.Path).
				Stringer("classification", decision.Classification).
				Str("target", decision.Target).
				Msg("guard redirect")
			redirectSuccess(jw, r, decision.Target)
			return
		}

		next(jw, r.WithContext(ctx))
	}
}

// SameOriginMiddleware rejects cross-site form posts with 403
func (s *Server) SameOriginMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isSameOrigin(r) {
			log.Ctx(r.Context()).Warn().Str("origin", r.Header.Get("Origin")).Str("path", r.URL.Path).Msg("cross-origin post rejected")
			http.Error(w, "403 - Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// isSameOrigin checks Sec-Fetch-Site first and falls back to Origin. Requests
// carrying neither header come from non-browser clients and are allowed.
func (s *Server) isSameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return true
	case "":
	default:
		return false
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "null" {
		return false
	}
	if origin == getScheme(r)+"://"+r.Host {
		return true
	}
	base, err := url.Parse(s.config.GetBaseURL())
	return err == nil && base.Host != "" && origin == base.Scheme+"://"+base.Host
}

// sessionClient returns the request's session client
func sessionClient(r *http.Request) *auth.SessionClient {
	client, ok := r.Context().Value(ContextKeySessionClient).(*auth.SessionClient)
	if !ok {
		// routes are only reachable through SessionMiddleware
		panic("session client missing from request context")
	}
	return client
}
