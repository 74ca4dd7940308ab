package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/"

	// Auth Routes - Login & Logout
	RouteLogin  = "/login"
	RouteLogout = "/logout"

	// Auth Routes - Provider redirects
	RouteCallback        = "/auth/callback"
	RouteCallbackSession = "/auth/callback/session"
	RouteAuthCodeError   = "/auth/auth-code-error"

	// Auth Routes - Password Management
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"

	// API Routes
	RouteAPIMe = "/api/me"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file...}"
)
