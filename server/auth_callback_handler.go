package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/ir-portal/auth"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// AuthCallbackHandler is the landing page of every provider redirect. It
// resolves query-string credentials on the server; when there are none it
// serves a page that hands the URL fragment back to AuthCallbackSessionHandler.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("callback.html")

	return func(w http.ResponseWriter, r *http.Request) {
		res := s.resolver.ResolveQuery(r.Context(), sessionClient(r), r.URL.Query())

		if res.Outcome == auth.OutcomeNoCredential {
			w.Header().Set("Content-Type", contentTypeHTML)
			w.Header().Set("Cache-Control", "no-store")
			data := UIPageData{AppName: s.config.GetAppName(), Title: "Signing you in"}
			if err := tmpl.Execute(w, data); err != nil {
				log.Ctx(r.Context()).Err(err).Msg("Failed to render callback template")
			}
			return
		}

		s.logResolution(r, "query", res)
		redirectSuccess(w, r, res.Redirect)
	}
}

// AuthCallbackSessionHandler receives the fragment that the callback page read
// in the browser and resolves it.
func (s *Server) AuthCallbackSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res auth.Resolution
		switch {
		case !s.isSameOrigin(r):
			err := fmt.Errorf("%w: cross-origin fragment post from %q", apperrors.ErrCredentialMalformed, r.Header.Get("Origin"))
			res = auth.Resolution{
				Outcome:  auth.OutcomeFailed,
				Redirect: RouteAuthCodeError + "?type=" + auth.ErrorPageType(err),
				Err:      err,
			}
		default:
			fragment, err := parseFragmentForm(r)
			if err != nil {
				res = auth.Resolution{
					Outcome:  auth.OutcomeFailed,
					Redirect: RouteAuthCodeError + "?type=" + auth.ErrorPageType(err),
					Err:      err,
				}
				break
			}
			res = s.resolver.ResolveFragment(r.Context(), sessionClient(r), fragment)
		}

		s.logResolution(r, "fragment", res)
		redirectSuccess(w, r, res.Redirect)
	}
}

func parseFragmentForm(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialMalformed, err)
	}
	fragment, err := url.ParseQuery(r.PostForm.Get("fragment"))
	if err != nil {
		return nil, fmt.Errorf("%w: fragment: %v", apperrors.ErrCredentialMalformed, err)
	}
	return fragment, nil
}

// logResolution records the outcome without any token material
func (s *Server) logResolution(r *http.Request, phase string, res auth.Resolution) {
	logger := log.Ctx(r.Context())
	if res.Outcome == auth.OutcomeEstablished {
		logger.Info().
			Str("phase", phase).
			Stringer("kind", res.Kind).
			Str("purpose", string(res.Purpose)).
			Str("user_id", res.Session.Subject()).
			Msg("session established")
		return
	}
	logger.Warn().
		Err(res.Err).
		Str("phase", phase).
		Stringer("kind", res.Kind).
		Msg("credential resolution failed")
}
