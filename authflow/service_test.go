package authflow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/draftstudio/auth-gateway/authflow"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/session"
	"github.com/draftstudio/auth-gateway/session/storefake"
)

const postAuthPath = "/auth/redirect"

func newService(t *testing.T, store session.Store, production bool) *authflow.Service {
	t.Helper()

	svc, err := authflow.NewService(store, authflow.Config{
		Production:   production,
		PostAuthPath: postAuthPath,
		SeedEmail:    "dev@localhost.dev",
		SeedPassword: "devpassword",
	}, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestLoginSuccessRedirects(t *testing.T) {
	store := storefake.NewFakeStore()
	store.AddUser("ada@example.com", "pw", nil)
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)

	rd, err := svc.Login(context.Background(), rec, req, "ada@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, postAuthPath, rd.To)

	// Session cookie was written.
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestLoginInvalidCredentials(t *testing.T) {
	store := storefake.NewFakeStore()
	store.AddUser("ada@example.com", "pw", nil)
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)

	_, err := svc.Login(context.Background(), rec, req, "ada@example.com", "wrong")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestLoginShortCircuitsOnExistingSession(t *testing.T) {
	store := storefake.NewFakeStore()
	store.Current = &session.Session{
		AccessToken: "existing",
		User:        &session.User{ID: "user-1"},
	}
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)

	// Credentials are never checked: even a bogus password redirects.
	rd, err := svc.Login(context.Background(), rec, req, "whoever", "whatever")
	require.NoError(t, err)
	require.Equal(t, postAuthPath, rd.To)
}

func TestSignUpRejectedOnDuplicateEmail(t *testing.T) {
	store := storefake.NewFakeStore()
	store.AddUser("ada@example.com", "pw", nil)
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", nil)

	_, err := svc.SignUp(context.Background(), rec, req, "ada@example.com", "pw2")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrSignupRejected))
}

func TestSignUpSuccess(t *testing.T) {
	store := storefake.NewFakeStore()
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", nil)

	rd, err := svc.SignUp(context.Background(), rec, req, "new@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, postAuthPath, rd.To)
}

func TestDevLoginBlockedInProduction(t *testing.T) {
	store := storefake.NewFakeStore()
	store.AddUser("dev@localhost.dev", "devpassword", nil)
	svc := newService(t, store, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-login", nil)

	_, err := svc.DevLogin(context.Background(), rec, req)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrEnvironmentNotAllowed))
}

func TestDevLoginUsesSeedCredential(t *testing.T) {
	store := storefake.NewFakeStore()
	store.AddUser("dev@localhost.dev", "devpassword", nil)
	svc := newService(t, store, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-login", nil)

	rd, err := svc.DevLogin(context.Background(), rec, req)
	require.NoError(t, err)
	require.Equal(t, postAuthPath, rd.To)
}
