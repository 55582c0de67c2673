package session

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

// Store is the session store contract consumed by the auth pipeline and the
// RPC context builder. GetSession returns (nil, nil) when no session exists.
// The sign-in family writes cookies on success and never retries.
type Store interface {
	GetSession(r *http.Request) (*Session, error)
	SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*Session, error)
	SignUp(ctx context.Context, w http.ResponseWriter, email, password string) (*Session, error)
	ExchangeCode(ctx context.Context, w http.ResponseWriter, code string) (*Session, error)
	SignOut(w http.ResponseWriter)
}

var _ Store = (*ProviderStore)(nil)

// ProviderStore backs Store with the identity provider's HTTP API and the
// request cookie codec.
type ProviderStore struct {
	provider  *Provider
	cookies   Cookies
	jwtSecret []byte
	nowTime   func() time.Time
}

// ProviderStoreOption configures a ProviderStore.
type ProviderStoreOption func(*ProviderStore)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ProviderStoreOption {
	return func(s *ProviderStore) {
		s.nowTime = nowFunc
	}
}

// WithJWTSecret enables HS256 verification of access-token claims.
func WithJWTSecret(secret string) ProviderStoreOption {
	return func(s *ProviderStore) {
		if secret != "" {
			s.jwtSecret = []byte(secret)
		}
	}
}

func NewProviderStore(provider *Provider, cookies Cookies, options ...ProviderStoreOption) (*ProviderStore, error) {
	if provider == nil {
		return nil, errors.New("[NewProviderStore] provider is required")
	}
	s := &ProviderStore{
		provider: provider,
		cookies:  cookies,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// GetSession resolves the current session from the request cookie. Expired
// sessions are treated as absent. When the cookie carries no user snapshot,
// the identity is recovered from the access token's claims.
func (s *ProviderStore) GetSession(r *http.Request) (*Session, error) {
	sess, err := s.cookies.Read(r)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.AccessToken == "" || sess.Expired(s.nowTime()) {
		return nil, nil
	}

	if sess.User == nil {
		user, err := s.userFromToken(sess.AccessToken)
		if err != nil {
			return nil, apperrors.Wrapf(err, "session: token claims")
		}
		sess.User = user
	}
	return sess, nil
}

func (s *ProviderStore) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*Session, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.cookies.Write(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ProviderStore) SignUp(ctx context.Context, w http.ResponseWriter, email, password string) (*Session, error) {
	sess, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.cookies.Write(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ProviderStore) ExchangeCode(ctx context.Context, w http.ResponseWriter, code string) (*Session, error) {
	sess, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.cookies.Write(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ProviderStore) SignOut(w http.ResponseWriter) {
	s.cookies.Clear(w)
}

// tokenClaims is the subset of access-token claims the gateway reads.
type tokenClaims struct {
	Email        string            `json:"email"`
	UserMetadata map[string]string `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (s *ProviderStore) userFromToken(accessToken string) (*User, error) {
	var claims tokenClaims
	if len(s.jwtSecret) > 0 {
		_, err := jwt.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (any, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return nil, err
		}
	} else {
		// Without the shared secret the token came straight from the
		// provider over TLS; claims are read unverified.
		if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
			return nil, err
		}
	}

	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	return &User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Metadata: claims.UserMetadata,
	}, nil
}
