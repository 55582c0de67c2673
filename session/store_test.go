package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/draftstudio/auth-gateway/session"
)

const testJWTSecret = "super-secret"

func signAccessToken(t *testing.T, sub, email string, metadata map[string]string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":           sub,
		"email":         email,
		"user_metadata": metadata,
		"exp":           time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newStore(t *testing.T, options ...session.ProviderStoreOption) *session.ProviderStore {
	t.Helper()

	provider, err := session.NewProvider(session.ProviderConfig{BaseURL: "http://localhost:9999"})
	require.NoError(t, err)
	store, err := session.NewProviderStore(provider, session.Cookies{}, options...)
	require.NoError(t, err)
	return store
}

func requestWithSession(t *testing.T, sess *session.Session) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, session.Cookies{}.Write(rec, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestGetSessionNoCookie(t *testing.T) {
	store := newStore(t)
	sess, err := store.GetSession(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestGetSessionRoundTrip(t *testing.T) {
	store := newStore(t)
	in := &session.Session{
		AccessToken: "opaque",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &session.User{ID: "user-1", Email: "ada@example.com"},
	}

	out, err := store.GetSession(requestWithSession(t, in))
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, "user-1", out.User.ID)
}

func TestGetSessionExpiredIsAbsent(t *testing.T) {
	_ = newStore(t)
	in := &session.Session{
		AccessToken: "opaque",
		ExpiresAt:   time.Now().Add(-time.Minute),
		User:        &session.User{ID: "user-1"},
	}

	// The cookie codec would never send an expired cookie, so build the
	// request with a future expiry and age the store's clock instead.
	in.ExpiresAt = time.Now().Add(time.Minute)
	req := requestWithSession(t, in)

	aged := newStore(t, session.WithNowTime(func() time.Time {
		return time.Now().Add(2 * time.Minute)
	}))
	out, err := aged.GetSession(req)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestGetSessionRecoversUserFromClaims(t *testing.T) {
	store := newStore(t, session.WithJWTSecret(testJWTSecret))
	in := &session.Session{
		AccessToken: signAccessToken(t, "user-7", "grace@example.com", map[string]string{"name": "Grace Hopper"}),
		ExpiresAt:   time.Now().Add(time.Hour),
		// No user snapshot in the cookie.
	}

	out, err := store.GetSession(requestWithSession(t, in))
	require.NoError(t, err)
	require.NotNil(t, out)
	require.NotNil(t, out.User)
	require.Equal(t, "user-7", out.User.ID)
	require.Equal(t, "grace@example.com", out.User.Email)
	require.Equal(t, "Grace Hopper", out.User.Metadata["name"])
}

func TestGetSessionRejectsForgedToken(t *testing.T) {
	store := newStore(t, session.WithJWTSecret("a different secret"))
	in := &session.Session{
		AccessToken: signAccessToken(t, "user-7", "grace@example.com", nil),
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	_, err := store.GetSession(requestWithSession(t, in))
	require.Error(t, err)
}

func TestCookiesClearExpires(t *testing.T) {
	rec := httptest.NewRecorder()
	session.Cookies{}.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, session.CookieName, cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}
