package server

import (
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	minPasswordLength = 6
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects. path may already
// carry a query string.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: RouteHome}
	}
	q := u.Query()
	q.Set("error", errorMsg)
	u.RawQuery = q.Encode()
	redirectSuccess(w, r, u.String())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// userMessage turns a provider failure into text that is safe to show. The
// provider's own message is only logged.
func userMessage(err error, fallback string) string {
	if apperrors.Is(err, apperrors.ErrProviderUnavailable) {
		return "The sign-in service is temporarily unavailable. Please try again shortly."
	}
	return fallback
}

// withNext appends a next parameter when target is a safe relative path
func withNext(path, next string) string {
	if next == "" {
		return path
	}
	return path + "?next=" + url.QueryEscape(next)
}
