package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// IndexHandler renders the investor dashboard
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionClient(r).GetSession(r.Context())
		if err != nil || session == nil {
			redirectSuccess(w, r, RouteLogin)
			return
		}

		data := s.pageData(r, "Dashboard")
		data.Email = session.User.Email
		data.UserID = session.Subject()

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := tmpl.Execute(w, data); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to render index template")
		}
	}
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// MeHandler returns the signed-in user as JSON
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")

		session, err := sessionClient(r).GetSession(r.Context())
		if err != nil || session == nil {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		if err := json.NewEncoder(w).Encode(meResponse{ID: session.Subject(), Email: session.User.Email}); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to encode user")
		}
	}
}
