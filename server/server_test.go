package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/draftstudio/auth-gateway/analytics/trackerfake"
	"github.com/draftstudio/auth-gateway/identity/repofake"
	"github.com/draftstudio/auth-gateway/internal/config"
	previewfake "github.com/draftstudio/auth-gateway/preview/repofake"
	"github.com/draftstudio/auth-gateway/sandbox"
	"github.com/draftstudio/auth-gateway/session/storefake"
)

const testSiteURL = "https://app.draftstudio.dev"

type testEnv struct {
	server  *Server
	store   *storefake.FakeStore
	users   *repofake.FakeUserRepo
	tracker *trackerfake.FakeTracker
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppName:          "auth-gateway",
		Env:              config.EnvDevelopment,
		Port:             "8080",
		SiteURL:          testSiteURL,
		HostingDomain:    "preview.draftstudio.dev",
		SeedUserEmail:    "dev@draftstudio.dev",
		SeedUserPassword: "dev-password",
		AllowedOrigins:   testSiteURL,
		AllowedMethods:   "GET, POST, OPTIONS",
		AllowedHeaders:   "Content-Type, Authorization",
	}
	for _, m := range mutate {
		m(cfg)
	}

	store := storefake.NewFakeStore()
	store.AddUser("dev@draftstudio.dev", "dev-password", nil)
	users := repofake.NewFakeUserRepo()
	tracker := trackerfake.NewFakeTracker()

	srv, err := New(cfg, Deps{
		Sessions: store,
		Users:    users,
		Previews: previewfake.NewFakeRepo(),
		Sandbox:  sandbox.NewController("https://preview.example.com", "https://editor.example.com"),
		Tracker:  tracker,
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)

	return &testEnv{server: srv, store: store, users: users, tracker: tracker}
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestLoginSuccessRedirects(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)

	w := postJSON(t, env.server, RouteLogin, map[string]string{
		"email": "ada@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, RouteAuthRedirect, w.Header().Get("Location"))
	require.NotEmpty(t, w.Result().Cookies())
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestServer(t)

	w := postJSON(t, env.server, RouteLogin, map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "invalid email or password", body["error"]["message"])
}

func TestLoginFormBody(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)

	form := "email=ada%40example.com&password=secret"
	r := httptest.NewRequest(http.MethodPost, RouteLogin, strings.NewReader(form))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginHTMXGets204(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)

	body, _ := json.Marshal(map[string]string{"email": "ada@example.com", "password": "secret"})
	r := httptest.NewRequest(http.MethodPost, RouteLogin, strings.NewReader(string(body)))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, RouteAuthRedirect, w.Header().Get("HX-Redirect"))
}

func TestSignupDuplicateConflicts(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)

	w := postJSON(t, env.server, RouteSignup, map[string]string{
		"email": "ada@example.com", "password": "other",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestDevLoginBlockedInProduction(t *testing.T) {
	env := newTestServer(t, func(c *config.Config) { c.Env = config.EnvProduction })

	w := postJSON(t, env.server, RouteDevLogin, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDevLoginUsesSeedUser(t *testing.T) {
	env := newTestServer(t)

	w := postJSON(t, env.server, RouteDevLogin, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.NotEmpty(t, w.Result().Cookies())
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestServer(t)

	w := postJSON(t, env.server, RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Negative(t, cookies[0].MaxAge)
}

func TestHealthz(t *testing.T) {
	env := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, RouteHealth, nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ok"`)
}

func TestMetricsEndpointServes(t *testing.T) {
	env := newTestServer(t)

	// Generate one request so the counters exist.
	postJSON(t, env.server, RouteDevLogin, nil)

	r := httptest.NewRequest(http.MethodGet, RouteMetrics, nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "auth_gateway_http_requests_total")
}

func TestCorsPreflightAllowedOrigin(t *testing.T) {
	env := newTestServer(t)

	r := httptest.NewRequest(http.MethodOptions, RouteLogin, nil)
	r.Header.Set("Origin", testSiteURL)
	w := httptest.NewRecorder()
	ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}, env.server.APIMiddleware()...)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, testSiteURL, w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsDisallowedOriginGetsNoHeaders(t *testing.T) {
	env := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, RouteLogin, strings.NewReader("{}"))
	r.Header.Set("Origin", "https://evil.example.com")
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, r)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddlewareAnswers500(t *testing.T) {
	env := newTestServer(t)

	h := ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, env.server.RecoverMiddleware)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSecurityHeadersSet(t *testing.T) {
	env := newTestServer(t)

	w := postJSON(t, env.server, RouteDevLogin, nil)
	require.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func signedInCookie(t *testing.T, env *testEnv, email, password string) []*http.Cookie {
	t.Helper()
	w := postJSON(t, env.server, RouteLogin, map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestRPCRequiresSession(t *testing.T) {
	env := newTestServer(t)

	w := postJSON(t, env.server, RouteRPC, map[string]any{"procedure": "user.get"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRPCUserUpsertAndGet(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", map[string]string{"name": "Ada Lovelace"})
	cookies := signedInCookie(t, env, "ada@example.com", "secret")

	do := func(payload any) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		r := httptest.NewRequest(http.MethodPost, RouteRPC, strings.NewReader(string(body)))
		r.Header.Set("Content-Type", "application/json")
		for _, c := range cookies {
			r.AddCookie(c)
		}
		w := httptest.NewRecorder()
		env.server.ServeHTTP(w, r)
		return w
	}

	w := do(map[string]any{"procedure": "user.upsert"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(map[string]any{"procedure": "user.get"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ada Lovelace")
}

func TestRPCBatchAnswers200WithInlineErrors(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)
	cookies := signedInCookie(t, env, "ada@example.com", "secret")

	batch := `[
		{"id": 1, "procedure": "sandbox.status", "input": {"sandbox_id": "sb-1"}},
		{"id": 2, "procedure": "does.not.exist"}
	]`
	r := httptest.NewRequest(http.MethodPost, RouteRPC, strings.NewReader(batch))
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var responses []struct {
		ID     json.Number     `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decoder := json.NewDecoder(strings.NewReader(w.Body.String()))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&responses))
	require.Len(t, responses, 2)
	require.Nil(t, responses[0].Error)
	require.NotNil(t, responses[1].Error)
	require.Equal(t, "NOT_FOUND", responses[1].Error.Code)
}

func TestRPCProcedurePath(t *testing.T) {
	env := newTestServer(t)
	env.store.AddUser("ada@example.com", "secret", nil)
	cookies := signedInCookie(t, env, "ada@example.com", "secret")

	r := httptest.NewRequest(http.MethodPost, RouteRPC+"/sandbox.start", strings.NewReader(`{"sandbox_id":"sb-1"}`))
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "https://preview.example.com")
}

func TestRPCDatabaseDownIs503(t *testing.T) {
	env := newTestServer(t)
	env.store.Err = context.DeadlineExceeded

	w := postJSON(t, env.server, RouteRPC, map[string]any{"procedure": "user.get"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
}

func TestRPCUnknownFailureIs500(t *testing.T) {
	env := newTestServer(t)
	env.store.Err = errors.New("template parse failed")

	w := postJSON(t, env.server, RouteRPC, map[string]any{"procedure": "user.get"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
