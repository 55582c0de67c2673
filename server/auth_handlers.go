package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/draftstudio/auth-gateway/authflow"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeCredentials accepts both JSON bodies and classic form posts so the
// endpoints work from fetch calls and plain HTML forms alike.
func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var creds credentialsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, apperrors.Wrapf(apperrors.ErrBadRequest, "invalid JSON body: %v", err)
		}
		return creds, nil
	}
	if err := r.ParseForm(); err != nil {
		return creds, apperrors.Wrapf(apperrors.ErrBadRequest, "invalid form body: %v", err)
	}
	creds.Email = r.FormValue("email")
	creds.Password = r.FormValue("password")
	return creds, nil
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := decodeCredentials(r)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		redirect, err := s.flows.Login(r.Context(), w, r, creds.Email, creds.Password)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		redirectSuccess(w, r, redirect.To)
	}
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := decodeCredentials(r)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		redirect, err := s.flows.SignUp(r.Context(), w, r, creds.Email, creds.Password)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		redirectSuccess(w, r, redirect.To)
	}
}

func (s *Server) DevLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := s.flows.DevLogin(r.Context(), w, r)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		redirectSuccess(w, r, redirect.To)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.deps.Sessions.SignOut(w)
		redirectSuccess(w, r, "/")
	}
}

// writeAuthError maps an action failure to a JSON error response. Provider
// and database detail never reaches the client on 5xx.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	var status int
	var message string
	switch {
	case authflow.IsSignal(err):
		// A redirect escaping as an error is a programming bug; the
		// action layer returns redirects as values.
		status = http.StatusInternalServerError
		message = http.StatusText(status)
		s.log.Error().Err(err).Msg("redirect signal escaped to the error path")
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "invalid email or password"
	case apperrors.Is(err, apperrors.ErrSignupRejected):
		status = http.StatusConflict
		message = "signup rejected"
	case apperrors.Is(err, apperrors.ErrEnvironmentNotAllowed):
		status = http.StatusForbidden
		message = "not available in this environment"
	case apperrors.Is(err, apperrors.ErrBadRequest):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		if apperrors.Classify(err) == apperrors.KindDatabase {
			status = http.StatusServiceUnavailable
		} else {
			status = http.StatusInternalServerError
		}
		message = http.StatusText(status)
		s.logServerFailure(status, err)
	}

	writeJSONError(w, status, message)
}

// logServerFailure logs a 5xx from a handler. Gateway-shaped statuses drop
// to debug in production, matching the request log.
func (s *Server) logServerFailure(status int, err error) {
	if gatewayStatus(status) {
		if s.config.IsProduction() {
			s.log.Debug().Err(err).Int("status", status).Msg("upstream unavailable")
		} else {
			s.log.Warn().Err(err).Int("status", status).Msg("upstream unavailable")
		}
		return
	}
	s.log.Error().Err(err).Int("status", status).Msg("handler failed")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": message},
	})
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
