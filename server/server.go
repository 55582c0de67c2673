// Package server wires the HTTP surface: auth action endpoints, the provider
// callback, the RPC mount, and operational routes.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/draftstudio/auth-gateway/analytics"
	"github.com/draftstudio/auth-gateway/authflow"
	"github.com/draftstudio/auth-gateway/identity"
	"github.com/draftstudio/auth-gateway/internal/config"
	"github.com/draftstudio/auth-gateway/preview"
	"github.com/draftstudio/auth-gateway/rpc"
	"github.com/draftstudio/auth-gateway/sandbox"
	"github.com/draftstudio/auth-gateway/session"
)

// Deps are the data-layer and provider handles the server operates on.
type Deps struct {
	Sessions session.Store
	Users    identity.Repo
	Previews preview.Repo
	Sandbox  *sandbox.Controller
	Tracker  analytics.Tracker
	Log      zerolog.Logger
	Registry prometheus.Registerer
}

type Server struct {
	config  *config.Config
	mux     *http.ServeMux
	routes  []string
	deps    Deps
	flows   *authflow.Service
	router  *rpc.Router
	builder *rpc.ContextBuilder
	metrics *Metrics
	log     zerolog.Logger
}

func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Tracker == nil {
		deps.Tracker = analytics.Noop{}
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	flows, err := authflow.NewService(deps.Sessions, authflow.Config{
		Production:   cfg.IsProduction(),
		PostAuthPath: RouteAuthRedirect,
		SeedEmail:    cfg.SeedUserEmail,
		SeedPassword: cfg.SeedUserPassword,
	}, deps.Log)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth flow service: %w", err)
	}

	s := &Server{
		config:  cfg,
		mux:     http.NewServeMux(),
		deps:    deps,
		flows:   flows,
		router:  rpc.NewRouter(),
		metrics: NewMetrics(deps.Registry),
		log:     deps.Log,
	}
	s.builder = &rpc.ContextBuilder{
		Sessions: deps.Sessions,
		Users:    deps.Users,
		Previews: deps.Previews,
		Sandbox:  deps.Sandbox,
		Log:      deps.Log,
	}
	rpc.CoreProcedures{HostingDomain: cfg.HostingDomain}.Register(s.router)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	// Auth actions
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteDevLogin, ChainMiddleware(s.DevLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Provider callback (browser redirect target)
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.AuthCallbackHandler(), s.APIMiddleware()...))

	// RPC mount: one endpoint for single and batched calls, plus a
	// per-procedure path for simple clients.
	s.RegisterRouteHandler("POST "+RouteRPC, ChainMiddleware(s.RPCHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRPC+"/{procedure}", ChainMiddleware(s.RPCProcedureHandler(), s.APIMiddleware()...))

	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.MetricsHandler())
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (s *Server) logRoutes() {
	if s.config.IsProduction() {
		return // Skip route logging outside development
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			s.log.Info().Str("path", parts[0]).Msg("route registered")
		}
	}
}
