package clientstate

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/draftstudio/auth-gateway/authflow"
)

// Sign-in methods as persisted in the local store.
const (
	MethodPassword = "password"
	MethodSignup   = "signup"
	MethodDev      = "dev"
)

const (
	keySigningInMethod  = "signingInMethod"
	keyLastSignInMethod = "lastSignInMethod"
	keyReturnURL        = "returnUrl"
)

// Actions are the auth operations the manager wraps. Implementations may
// report a successful server-driven redirect as a *authflow.Signal error;
// the manager swallows those and surfaces only real failures.
type Actions interface {
	Login(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	DevLogin(ctx context.Context) error
}

// Manager tracks the client's auth flow state around the action calls.
// SigningInMethod and LastSignInMethod load once from the store and are
// cached for the manager's lifetime.
type Manager struct {
	kv      KV
	actions Actions
	origin  string
	log     zerolog.Logger

	loadOnce   sync.Once
	signingIn  string
	lastMethod string
}

func NewManager(kv KV, actions Actions, origin string, log zerolog.Logger) (*Manager, error) {
	if kv == nil {
		return nil, errors.New("[NewManager] kv store is required")
	}
	if actions == nil {
		return nil, errors.New("[NewManager] actions are required")
	}
	return &Manager{kv: kv, actions: actions, origin: strings.TrimSuffix(origin, "/"), log: log}, nil
}

// SigningInMethod returns the method currently in flight, if any.
func (m *Manager) SigningInMethod() string {
	m.load()
	return m.signingIn
}

// LastSignInMethod returns the method that last completed successfully.
func (m *Manager) LastSignInMethod() string {
	m.load()
	return m.lastMethod
}

func (m *Manager) load() {
	m.loadOnce.Do(func() {
		if value, ok, err := m.kv.Get(keySigningInMethod); err != nil {
			m.log.Warn().Err(err).Msg("loading in-flight sign-in method failed")
		} else if ok {
			m.signingIn = value
		}
		if value, ok, err := m.kv.Get(keyLastSignInMethod); err != nil {
			m.log.Warn().Err(err).Msg("loading last sign-in method failed")
		} else if ok {
			m.lastMethod = value
		}
	})
}

func (m *Manager) Login(ctx context.Context, email, password, returnURL string) error {
	return m.run(MethodPassword, returnURL, func() error {
		return m.actions.Login(ctx, email, password)
	})
}

func (m *Manager) SignUp(ctx context.Context, email, password, returnURL string) error {
	return m.run(MethodSignup, returnURL, func() error {
		return m.actions.SignUp(ctx, email, password)
	})
}

func (m *Manager) DevLogin(ctx context.Context, returnURL string) error {
	return m.run(MethodDev, returnURL, func() error {
		return m.actions.DevLogin(ctx)
	})
}

// run persists the flow state, invokes the action, and clears the in-flight
// marker whether or not the action succeeds. A redirect signal from the
// action means success; real errors pass through.
func (m *Manager) run(method, returnURL string, action func() error) error {
	m.load()
	m.signingIn = method
	if err := m.kv.Set(keySigningInMethod, method); err != nil {
		m.log.Warn().Err(err).Msg("persisting in-flight sign-in method failed")
	}
	if err := m.kv.Set(keyLastSignInMethod, method); err != nil {
		m.log.Warn().Err(err).Msg("persisting last sign-in method failed")
	}
	if returnURL != "" {
		if err := m.kv.Set(keyReturnURL, returnURL); err != nil {
			m.log.Warn().Err(err).Msg("persisting return URL failed")
		}
	}

	defer func() {
		m.signingIn = ""
		if err := m.kv.Delete(keySigningInMethod); err != nil {
			m.log.Warn().Err(err).Msg("clearing in-flight sign-in method failed")
		}
	}()

	err := action()
	if err == nil {
		m.lastMethod = method
		return nil
	}
	if authflow.IsSignal(err) {
		// The server answered with a redirect; the sign-in worked.
		m.lastMethod = method
		return nil
	}
	return err
}

// ConsumeReturnURL returns the stored post-auth destination and removes it,
// so a second read after the same sign-in gets nothing. Destinations that
// point off-origin are dropped.
func (m *Manager) ConsumeReturnURL() string {
	value, ok, err := m.kv.Get(keyReturnURL)
	if err != nil {
		m.log.Warn().Err(err).Msg("reading return URL failed")
		return ""
	}
	if !ok {
		return ""
	}
	if err := m.kv.Delete(keyReturnURL); err != nil {
		m.log.Warn().Err(err).Msg("clearing return URL failed")
	}
	return m.sanitizeReturnURL(value)
}

func (m *Manager) sanitizeReturnURL(value string) string {
	if value == "" || strings.HasPrefix(value, "//") {
		return ""
	}
	if strings.HasPrefix(value, "/") {
		return value
	}
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() {
		return ""
	}
	if m.origin != "" && u.Scheme+"://"+u.Host == m.origin {
		return value
	}
	return ""
}
