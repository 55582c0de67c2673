// Package authflow is the server-side auth action pipeline: login, signup
// and dev-login. Actions return an explicit Redirect value instead of
// signalling navigation through errors, so callers branch rather than
// inspect thrown values.
package authflow

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/session"
)

// Redirect is where the caller should send the user next.
type Redirect struct {
	To string
}

// Config carries the pipeline's environment gates and the dev seed
// credential.
type Config struct {
	// Production disables dev login.
	Production bool
	// PostAuthPath is the destination after any successful action.
	PostAuthPath string
	// SeedEmail/SeedPassword is the fixed dev-login credential.
	SeedEmail    string
	SeedPassword string
}

// Service runs the auth actions against a session store.
type Service struct {
	sessions session.Store
	config   Config
	log      zerolog.Logger
}

func NewService(sessions session.Store, config Config, log zerolog.Logger) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("[NewService] sessions store is required")
	}
	if config.PostAuthPath == "" {
		return nil, errors.New("[NewService] PostAuthPath is required")
	}
	return &Service{sessions: sessions, config: config, log: log}, nil
}

// Login exchanges email+password for a session. An existing valid session
// short-circuits straight to the redirect.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (Redirect, error) {
	if rd, ok := s.existingSession(r); ok {
		return rd, nil
	}

	sess, err := s.sessions.SignIn(ctx, w, email, password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			s.log.Warn().Str("email", email).Msg("login rejected: invalid credentials")
			return Redirect{}, err
		}
		return Redirect{}, errors.Wrap(err, "[Service.Login] sign in")
	}
	if sess.User == nil {
		s.log.Error().Str("email", email).Msg("login: no user data after sign in")
		return Redirect{}, apperrors.Wrapf(apperrors.ErrNoUserData, "sign in for %s", email)
	}

	return Redirect{To: s.config.PostAuthPath}, nil
}

// SignUp registers a new account. An existing valid session short-circuits.
func (s *Service) SignUp(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (Redirect, error) {
	if rd, ok := s.existingSession(r); ok {
		return rd, nil
	}

	sess, err := s.sessions.SignUp(ctx, w, email, password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSignupRejected) {
			s.log.Warn().Str("email", email).Msg("signup rejected")
			return Redirect{}, err
		}
		return Redirect{}, errors.Wrap(err, "[Service.SignUp] sign up")
	}
	if sess.User == nil {
		return Redirect{}, apperrors.Wrapf(apperrors.ErrNoUserData, "sign up for %s", email)
	}

	return Redirect{To: s.config.PostAuthPath}, nil
}

// DevLogin signs in with the fixed seed credential. Fails closed in
// production.
func (s *Service) DevLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) (Redirect, error) {
	if s.config.Production {
		return Redirect{}, apperrors.Wrapf(apperrors.ErrEnvironmentNotAllowed, "dev login")
	}
	if rd, ok := s.existingSession(r); ok {
		return rd, nil
	}

	sess, err := s.sessions.SignIn(ctx, w, s.config.SeedEmail, s.config.SeedPassword)
	if err != nil {
		return Redirect{}, errors.Wrap(err, "[Service.DevLogin] seed sign in")
	}
	if sess.User == nil {
		return Redirect{}, apperrors.Wrapf(apperrors.ErrNoUserData, "dev login")
	}

	return Redirect{To: s.config.PostAuthPath}, nil
}

// existingSession checks for a valid session on the request. Lookup failures
// are treated as "no session": the subsequent exchange decides the outcome.
func (s *Service) existingSession(r *http.Request) (Redirect, bool) {
	sess, err := s.sessions.GetSession(r)
	if err != nil {
		s.log.Warn().Err(err).Msg("authflow: session lookup failed, continuing without")
		return Redirect{}, false
	}
	if sess == nil {
		return Redirect{}, false
	}
	return Redirect{To: s.config.PostAuthPath}, true
}
