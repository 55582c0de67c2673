package clientstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/pkg/errors"

	"github.com/draftstudio/auth-gateway/authflow"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

const (
	loginPath    = "/auth/login"
	signupPath   = "/auth/signup"
	devLoginPath = "/auth/dev-login"
)

// HTTPActions performs the auth actions against a running gateway. The
// client keeps a cookie jar so the session cookie from a successful sign-in
// is carried on subsequent calls. Server-driven redirects (303 or an
// HX-Redirect 204) surface as *authflow.Signal.
type HTTPActions struct {
	baseURL string
	client  *http.Client
}

func NewHTTPActions(baseURL string) (*HTTPActions, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[NewHTTPActions] create cookie jar")
	}
	return &HTTPActions{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Jar: jar,
			// Redirects are flow signals here, not pages to follow.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (a *HTTPActions) Login(ctx context.Context, email, password string) error {
	return a.post(ctx, loginPath, map[string]string{"email": email, "password": password})
}

func (a *HTTPActions) SignUp(ctx context.Context, email, password string) error {
	return a.post(ctx, signupPath, map[string]string{"email": email, "password": password})
}

func (a *HTTPActions) DevLogin(ctx context.Context) error {
	return a.post(ctx, devLoginPath, nil)
}

func (a *HTTPActions) post(ctx context.Context, path string, payload map[string]string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "[HTTPActions.post] encode payload")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "[HTTPActions.post] build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[HTTPActions.post] perform request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusSeeOther:
		return &authflow.Signal{To: resp.Header.Get("Location")}
	case resp.StatusCode == http.StatusNoContent:
		return &authflow.Signal{To: resp.Header.Get("HX-Redirect")}
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	}

	return actionError(resp)
}

func actionError(resp *http.Response) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		message = body.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%s", message)
	case http.StatusConflict:
		return apperrors.Wrapf(apperrors.ErrSignupRejected, "%s", message)
	case http.StatusForbidden:
		return apperrors.Wrapf(apperrors.ErrEnvironmentNotAllowed, "%s", message)
	case http.StatusServiceUnavailable:
		return apperrors.Wrapf(apperrors.ErrDatabaseConnection, "%s", message)
	default:
		return fmt.Errorf("auth action failed with status %d: %s", resp.StatusCode, message)
	}
}
