// Package config loads application configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every environment-driven option the gateway recognises.
type Config struct {
	// AppName is used for the startup banner and metric namespaces.
	AppName string `mapstructure:"APP_NAME"`
	// Env is the application environment ("development" or "production").
	// Gates dev login and the production logging policy.
	Env string `mapstructure:"APP_ENV"`
	// Port is the listen port (e.g. "8080"), without a leading colon.
	Port string `mapstructure:"PORT"`

	// SiteURL is the trusted site origin. Absolute redirect targets are
	// always built from this value, never from request headers.
	SiteURL string `mapstructure:"SITE_URL"`

	// DatabaseURL is the Postgres DSN. Required at runtime; absence is fatal
	// on first database access.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// AuthURL is the base URL of the identity provider's auth API.
	AuthURL string `mapstructure:"AUTH_URL"`
	// AuthAnonKey is the provider's public API key, sent with every call.
	AuthAnonKey string `mapstructure:"AUTH_ANON_KEY"`
	// AuthJWTSecret verifies provider-issued access tokens when set.
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	// AuthIssuer enables OIDC ID-token verification on code exchange when set.
	AuthIssuer string `mapstructure:"AUTH_ISSUER"`

	// HostingDomain is the apex under which preview subdomains are created.
	HostingDomain string `mapstructure:"HOSTING_DOMAIN"`

	// Sandbox URLs returned by the sandbox controller.
	SandboxPreviewURL string `mapstructure:"SANDBOX_PREVIEW_URL"`
	SandboxEditorURL  string `mapstructure:"SANDBOX_EDITOR_URL"`

	// Analytics capture endpoint. Tracking is disabled when the key is empty.
	AnalyticsHost string `mapstructure:"ANALYTICS_HOST"`
	AnalyticsKey  string `mapstructure:"ANALYTICS_KEY"`

	// Seed credential used by dev login. Only honoured outside production.
	SeedUserEmail    string `mapstructure:"SEED_USER_EMAIL"`
	SeedUserPassword string `mapstructure:"SEED_USER_PASSWORD"`

	// CORS
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders string `mapstructure:"ALLOWED_HEADERS"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine (e.g. in CI)

	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "auth-gateway")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("SITE_URL", "http://localhost:8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_URL", "http://localhost:9999")
	v.SetDefault("AUTH_ANON_KEY", "")
	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_ISSUER", "")
	v.SetDefault("HOSTING_DOMAIN", "")
	v.SetDefault("SANDBOX_PREVIEW_URL", "http://localhost:8084")
	v.SetDefault("SANDBOX_EDITOR_URL", "http://localhost:8080")
	v.SetDefault("ANALYTICS_HOST", "https://app.posthog.com")
	v.SetDefault("ANALYTICS_KEY", "")
	v.SetDefault("SEED_USER_EMAIL", "dev@localhost.dev")
	v.SetDefault("SEED_USER_PASSWORD", "devpassword")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("ALLOWED_METHODS", "GET, POST, OPTIONS")
	v.SetDefault("ALLOWED_HEADERS", "Content-Type, Authorization")
	v.SetDefault("SHUTDOWN_TIMEOUT", 5*time.Second)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("config: PORT must be set")
	}
	if c.SiteURL == "" {
		return errors.New("config: SITE_URL must be set")
	}
	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: SITE_URL %q is not an absolute URL", c.SiteURL)
	}
	if c.AuthURL == "" {
		return errors.New("config: AUTH_URL must be set")
	}
	if c.IsProduction() && strings.Contains(c.SiteURL, "localhost") {
		return fmt.Errorf("config: SITE_URL %q is not valid in production", c.SiteURL)
	}
	return nil
}

// IsProduction reports whether the gateway runs with the production flag.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// SiteOrigin returns the scheme://host part of SiteURL.
func (c *Config) SiteOrigin() string {
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return c.SiteURL
	}
	return u.Scheme + "://" + u.Host
}

// AllowedOriginList splits ALLOWED_ORIGINS into its entries.
func (c *Config) AllowedOriginList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
