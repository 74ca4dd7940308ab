package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/ir-portal/auth"
	apperrors "github.com/jrsteele09/ir-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// UIPageData is the template model shared by the UI pages
type UIPageData struct {
	AppName  string
	Title    string
	Error    string
	Message  string
	Email    string
	Next     string
	UserID   string
	ShowForm bool
}

func (s *Server) pageData(r *http.Request, title string) UIPageData {
	return UIPageData{
		AppName: s.config.GetAppName(),
		Title:   title,
		Error:   r.URL.Query().Get("error"),
	}
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Sign in")
		data.Email = r.URL.Query().Get("email")
		data.Next = auth.SafeRedirectTarget(r.URL.Query().Get("next"), "")
		if r.URL.Query().Get("reset") == "success" {
			data.Message = "Your password has been updated. Please sign in with your new password."
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to render login template")
		}
	}
}

// LoginSubmissionHandler processes the login form submission (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.PostForm.Get("email"))
		password := r.PostForm.Get("password")
		next := auth.SafeRedirectTarget(r.PostForm.Get("next"), "")
		loginPath := withNext(RouteLogin, next)

		if email == "" || password == "" {
			redirectWithError(w, r, loginPath, "Email and password are required")
			return
		}

		if _, err := sessionClient(r).SignInWithPassword(r.Context(), email, password); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("password sign-in failed")
			redirectWithError(w, r, loginPath, userMessage(err, "Invalid email or password"))
			return
		}
		redirectSuccess(w, r, auth.SafeRedirectTarget(next, RouteHome))
	}
}

// LogoutHandler ends the session with the provider and clears the cookie
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessionClient(r).SignOut(r.Context()); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("provider sign-out failed, cookie cleared")
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Reset your password")
		data.ShowForm = true
		if r.URL.Query().Get("sent") == "true" {
			data.Message = "If an account exists for that address, we have sent a link to reset your password."
			data.ShowForm = false
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to render forgot password template")
		}
	}
}

// ForgotPasswordPostHandler asks the provider for a recovery email. The
// response never reveals whether the address has an account.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.PostForm.Get("email"))
		if email == "" || !strings.Contains(email, "@") {
			redirectWithError(w, r, RouteForgotPassword, "Please enter a valid email address")
			return
		}

		redirectTo := s.config.GetBaseURL() + withNext(RouteCallback, RouteResetPassword)
		if err := sessionClient(r).ResetPasswordForEmail(r.Context(), email, redirectTo); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("password recovery request failed")
		}
		redirectSuccess(w, r, RouteForgotPassword+"?sent=true")
	}
}

// ResetPasswordGetHandler renders the new-password form for a recovery session
func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("reset_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Choose a new password")

		session, err := sessionClient(r).GetSession(r.Context())
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("session lookup failed on reset page")
		}
		if session != nil {
			data.ShowForm = true
			data.Email = session.User.Email
			if r.URL.Query().Get("verified") == "true" && data.Error == "" {
				data.Message = "Your link has been verified. Choose a new password below."
			}
		} else if data.Error == "" {
			data.Error = "Your password reset link is invalid or has expired. Please request a new one."
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := tmpl.Execute(w, data); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to render reset password template")
		}
	}
}

// ResetPasswordPostHandler updates the password and signs the user out so they
// sign in again with the new password.
func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		password := r.PostForm.Get("password")
		confirm := r.PostForm.Get("confirm_password")

		if len(password) < minPasswordLength {
			redirectWithError(w, r, RouteResetPassword, "Password must be at least 6 characters")
			return
		}
		if password != confirm {
			redirectWithError(w, r, RouteResetPassword, "Passwords do not match")
			return
		}

		client := sessionClient(r)
		if err := client.UpdatePassword(r.Context(), password); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("password update failed")
			msg := "Your password could not be updated. Please choose a different password."
			if apperrors.Is(err, apperrors.ErrSessionNotFound) || apperrors.Is(err, apperrors.ErrSessionLookupFailed) {
				msg = "Your password reset link is invalid or has expired. Please request a new one."
			}
			redirectWithError(w, r, RouteResetPassword, userMessage(err, msg))
			return
		}

		if err := client.SignOut(r.Context()); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("sign-out after password reset failed, cookie cleared")
		}
		redirectSuccess(w, r, RouteLogin+"?reset=success")
	}
}

// AuthCodeErrorHandler explains a failed sign-in link
func (s *Server) AuthCodeErrorHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("auth_code_error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Sign-in link problem")
		switch r.URL.Query().Get("type") {
		case "expired", "used":
			data.Error = "This link has expired or has already been used."
		case "invalid":
			data.Error = "This link is invalid."
		default:
			data.Error = "We could not sign you in with this link."
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to render auth code error template")
		}
	}
}
