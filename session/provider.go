package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

const defaultProviderTimeout = 10 * time.Second

// ProviderConfig configures the HTTP client for the identity provider's
// auth API.
type ProviderConfig struct {
	// BaseURL of the provider auth API (e.g. https://id.example.com/auth/v1).
	BaseURL string
	// APIKey is sent as the provider's public `apikey` header.
	APIKey string
	// Issuer, when set, enables OIDC ID-token verification on code exchange.
	Issuer string
	// ClientID is the OIDC audience used for ID-token verification.
	ClientID string
	// HTTPClient overrides the default client (primarily for testing).
	HTTPClient *http.Client
}

// Provider speaks the identity provider's token, signup and user endpoints.
type Provider struct {
	baseURL  string
	apiKey   string
	issuer   string
	clientID string
	client   *http.Client

	oidcOnce     sync.Once
	oidcVerifier *oidc.IDTokenVerifier
	oidcErr      error
}

func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("[NewProvider] BaseURL is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultProviderTimeout}
	}
	return &Provider{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		client:   client,
	}, nil
}

// tokenResponse is the provider's token-bearing response shape.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *providerUser `json:"user"`
}

type providerUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

type providerError struct {
	Code             string `json:"error_code"`
	Error_           string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *providerError) message() string {
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error_, e.Code} {
		if m != "" {
			return m
		}
	}
	return "provider request failed"
}

// SignIn exchanges email+password for a session via the password grant.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	tr, status, err := p.post(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%s", err.Error())
		}
		return nil, errors.Wrap(err, "[Provider.SignIn] password grant")
	}
	return p.session(tr), nil
}

// SignUp registers a new account for email+password.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	tr, status, err := p.post(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest || status == http.StatusConflict {
			return nil, apperrors.Wrapf(apperrors.ErrSignupRejected, "%s", err.Error())
		}
		return nil, errors.Wrap(err, "[Provider.SignUp] signup")
	}
	return p.session(tr), nil
}

// ExchangeCode swaps an authorization code for a session using the standard
// oauth2 token endpoint, then resolves the user behind the access token.
// When an issuer is configured the returned ID token is verified.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	conf := &oauth2.Config{
		ClientID: p.clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrExchangeFailed, "%s", sanitizeOAuthError(err))
	}

	if rawIDToken, ok := tok.Extra("id_token").(string); ok && p.issuer != "" {
		if err := p.verifyIDToken(ctx, rawIDToken); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrExchangeFailed, "id token verification: %s", err.Error())
		}
	}

	user, err := p.User(ctx, tok.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.ExchangeCode] resolve user")
	}

	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		User:         user,
	}, nil
}

// User fetches the identity behind an access token.
func (p *Provider) User(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.User] build request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	p.setAPIKey(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.User] request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("[Provider.User] status %d: %s", resp.StatusCode, readProviderError(resp.Body))
	}

	var pu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&pu); err != nil {
		return nil, errors.Wrap(err, "[Provider.User] decode")
	}
	return pu.toUser(), nil
}

func (p *Provider) verifyIDToken(ctx context.Context, rawIDToken string) error {
	p.oidcOnce.Do(func() {
		provider, err := oidc.NewProvider(ctx, p.issuer)
		if err != nil {
			p.oidcErr = err
			return
		}
		p.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: p.clientID})
	})
	if p.oidcErr != nil {
		return p.oidcErr
	}
	_, err := p.oidcVerifier.Verify(ctx, rawIDToken)
	return err
}

func (p *Provider) post(ctx context.Context, path string, body map[string]string) (*tokenResponse, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAPIKey(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errors.New(readProviderError(resp.Body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "decode token response")
	}
	return &tr, resp.StatusCode, nil
}

func (p *Provider) setAPIKey(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
}

func (p *Provider) session(tr *tokenResponse) *Session {
	sess := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	switch {
	case tr.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		sess.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	if tr.User != nil {
		sess.User = tr.User.toUser()
	}
	return sess
}

func (pu *providerUser) toUser() *User {
	user := &User{
		ID:       pu.ID,
		Email:    pu.Email,
		Metadata: make(map[string]string, len(pu.Metadata)),
	}
	for k, v := range pu.Metadata {
		if s, ok := v.(string); ok {
			user.Metadata[k] = s
		}
	}
	return user
}

func readProviderError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "provider request failed"
	}
	var pe providerError
	if json.Unmarshal(raw, &pe) == nil {
		return pe.message()
	}
	return string(raw)
}

// sanitizeOAuthError trims the oauth2 library's verbose response dump down
// to the server's error description where present.
func sanitizeOAuthError(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
		return readProviderError(bytes.NewReader(retrieveErr.Body))
	}
	return err.Error()
}
