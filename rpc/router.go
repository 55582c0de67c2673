package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

// HandlerFunc is a single procedure. Input is the raw JSON payload for the
// call; handlers decode it themselves so each procedure owns its shape.
type HandlerFunc func(ctx context.Context, c *Context, input json.RawMessage) (any, error)

// Router holds the procedure registry. Registration happens once at startup;
// Dispatch is read-only and safe for concurrent use after that.
type Router struct {
	procedures map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{procedures: make(map[string]HandlerFunc)}
}

func (r *Router) Handle(name string, h HandlerFunc) {
	r.procedures[name] = h
}

// Dispatch runs a single named procedure against the call context.
func (r *Router) Dispatch(ctx context.Context, c *Context, name string, input json.RawMessage) (any, error) {
	h, ok := r.procedures[name]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "[Router.Dispatch] unknown procedure %q", name)
	}
	return h(ctx, c, input)
}

// Protected rejects anonymous calls before the handler runs.
func Protected(h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
		if c.User == nil {
			return nil, errors.Wrap(apperrors.ErrUnauthorized, "[Protected] sign-in required")
		}
		return h(ctx, c, input)
	}
}

// Request is one procedure call on the wire. ID is echoed back untouched so
// batched callers can correlate responses.
type Request struct {
	ID        any             `json:"id,omitempty"`
	Procedure string          `json:"procedure"`
	Input     json.RawMessage `json:"input,omitempty"`
}

type Response struct {
	ID     any        `json:"id,omitempty"`
	Result any        `json:"result,omitempty"`
	Error  *CallError `json:"error,omitempty"`
}

type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor maps a procedure error to an HTTP status. Database trouble is
// always 503, never 502, so callers can tell "our backend is down" apart
// from a bad gateway in front of it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	switch apperrors.Classify(err) {
	case apperrors.KindDatabase:
		return http.StatusServiceUnavailable
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func CodeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorResponse builds the wire error for a failed call. Messages for
// internal failures are replaced with a generic string so provider and
// database internals never leak to the client.
func ErrorResponse(id any, err error) Response {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		msg = http.StatusText(status)
	}
	return Response{ID: id, Error: &CallError{Code: CodeFor(status), Message: msg}}
}
