package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/draftstudio/auth-gateway/analytics"
	"github.com/draftstudio/auth-gateway/identity"
	identityfake "github.com/draftstudio/auth-gateway/identity/repofake"
	"github.com/draftstudio/auth-gateway/identity/repopg"
	"github.com/draftstudio/auth-gateway/internal/config"
	"github.com/draftstudio/auth-gateway/internal/db"
	"github.com/draftstudio/auth-gateway/preview"
	previewfake "github.com/draftstudio/auth-gateway/preview/repofake"
	previewpg "github.com/draftstudio/auth-gateway/preview/repopg"
	"github.com/draftstudio/auth-gateway/sandbox"
	"github.com/draftstudio/auth-gateway/server"
	"github.com/draftstudio/auth-gateway/session"
)

func main() {
	log := newLogger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.AppName)

	users, previews, cleanup, err := buildRepos(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := session.NewProvider(session.ProviderConfig{
		BaseURL: cfg.AuthURL,
		APIKey:  cfg.AuthAnonKey,
		Issuer:  cfg.AuthIssuer,
	})
	if err != nil {
		return fmt.Errorf("session.NewProvider: %w", err)
	}
	store, err := session.NewProviderStore(provider,
		session.Cookies{Secure: cfg.IsProduction()},
		session.WithJWTSecret(cfg.AuthJWTSecret),
	)
	if err != nil {
		return fmt.Errorf("session.NewProviderStore: %w", err)
	}

	var tracker analytics.Tracker = analytics.Noop{}
	if cfg.AnalyticsHost != "" && cfg.AnalyticsKey != "" {
		tracker = analytics.NewCaptureClient(cfg.AnalyticsHost, cfg.AnalyticsKey)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(cfg, server.Deps{
		Sessions: store,
		Users:    users,
		Previews: previews,
		Sandbox:  sandbox.NewController(cfg.SandboxPreviewURL, cfg.SandboxEditorURL),
		Tracker:  tracker,
		Log:      log,
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: srv}
	go listenAndServe(httpServer, log)
	waitForStopSignal()
	return shutdown(httpServer, cfg.ShutdownTimeout)
}

// buildRepos wires the persistent repos when a database is configured and
// falls back to in-memory ones for local development without one.
func buildRepos(cfg *config.Config, log zerolog.Logger) (identity.Repo, preview.Repo, func(), error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, nil, nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn().Msg("no DATABASE_URL set, using in-memory repositories")
		return identityfake.NewFakeUserRepo(), previewfake.NewFakeRepo(), func() {}, nil
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, nil, fmt.Errorf("db.Migrate: %w", err)
	}
	handle := db.New(cfg.DatabaseURL)
	return repopg.NewUserRepo(handle), previewpg.NewDomainRepo(handle), handle.Close, nil
}

func listenAndServe(httpServer *http.Server, log zerolog.Logger) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
