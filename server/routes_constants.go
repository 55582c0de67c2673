package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Actions
	RouteLogin    = "/auth/login"
	RouteSignup   = "/auth/signup"
	RouteDevLogin = "/auth/dev-login"
	RouteLogout   = "/auth/logout"

	// Auth Routes - Provider callback
	RouteCallback = "/auth/callback"

	// Auth Routes - Browser destinations
	RouteAuthRedirect  = "/auth/redirect"
	RouteAuthCodeError = "/auth/auth-code-error"

	// API Routes
	RouteRPC = "/api/rpc"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
