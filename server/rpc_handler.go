package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/rpc"
)

// maxRPCBody bounds a request body. Procedure inputs are small; anything
// bigger is a mistake or abuse.
const maxRPCBody = 1 << 20

// RPCHandler serves the main mount: a single call object or an array of
// calls. Batches always answer 200 with per-call errors inline; single calls
// answer with the mapped status.
func (s *Server) RPCHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.builder.Build(r)
		if err != nil {
			s.writeRPCError(w, nil, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRPCBody))
		if err != nil {
			s.writeRPCError(w, nil, apperrors.Wrapf(apperrors.ErrBadRequest, "read body: %v", err))
			return
		}
		body = bytes.TrimSpace(body)
		if len(body) == 0 {
			s.writeRPCError(w, nil, apperrors.Wrapf(apperrors.ErrBadRequest, "empty body"))
			return
		}

		if body[0] == '[' {
			var calls []rpc.Request
			if err := json.Unmarshal(body, &calls); err != nil {
				s.writeRPCError(w, nil, apperrors.Wrapf(apperrors.ErrBadRequest, "invalid batch: %v", err))
				return
			}
			responses := make([]rpc.Response, 0, len(calls))
			for _, call := range calls {
				result, err := s.router.Dispatch(r.Context(), c, call.Procedure, call.Input)
				if err != nil {
					s.logRPCFailure(call.Procedure, err)
					responses = append(responses, rpc.ErrorResponse(call.ID, err))
					continue
				}
				responses = append(responses, rpc.Response{ID: call.ID, Result: result})
			}
			writeJSON(w, http.StatusOK, responses)
			return
		}

		var call rpc.Request
		if err := json.Unmarshal(body, &call); err != nil {
			s.writeRPCError(w, nil, apperrors.Wrapf(apperrors.ErrBadRequest, "invalid call: %v", err))
			return
		}
		result, err := s.router.Dispatch(r.Context(), c, call.Procedure, call.Input)
		if err != nil {
			s.logRPCFailure(call.Procedure, err)
			s.writeRPCError(w, call.ID, err)
			return
		}
		writeJSON(w, http.StatusOK, rpc.Response{ID: call.ID, Result: result})
	}
}

// RPCProcedureHandler serves POST /api/rpc/{procedure} with the raw input as
// the request body.
func (s *Server) RPCProcedureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		procedure := r.PathValue("procedure")

		c, err := s.builder.Build(r)
		if err != nil {
			s.writeRPCError(w, nil, err)
			return
		}

		input, err := io.ReadAll(io.LimitReader(r.Body, maxRPCBody))
		if err != nil {
			s.writeRPCError(w, nil, apperrors.Wrapf(apperrors.ErrBadRequest, "read body: %v", err))
			return
		}

		result, err := s.router.Dispatch(r.Context(), c, procedure, input)
		if err != nil {
			s.logRPCFailure(procedure, err)
			s.writeRPCError(w, nil, err)
			return
		}
		writeJSON(w, http.StatusOK, rpc.Response{Result: result})
	}
}

func (s *Server) writeRPCError(w http.ResponseWriter, id any, err error) {
	resp := rpc.ErrorResponse(id, err)
	writeJSON(w, rpc.StatusFor(err), resp)
}

// logRPCFailure logs a failed procedure call. An unauthorized call is the
// normal signed-out case, not an application error.
func (s *Server) logRPCFailure(procedure string, err error) {
	status := rpc.StatusFor(err)
	switch {
	case status == http.StatusUnauthorized:
		s.log.Debug().Str("procedure", procedure).Msg("unauthorized call")
	case gatewayStatus(status):
		if s.config.IsProduction() {
			s.log.Debug().Err(err).Str("procedure", procedure).Msg("call failed, upstream unavailable")
		} else {
			s.log.Warn().Err(err).Str("procedure", procedure).Msg("call failed, upstream unavailable")
		}
	case status >= http.StatusInternalServerError:
		s.log.Error().Err(err).Str("procedure", procedure).Msg("call failed")
	default:
		s.log.Debug().Err(err).Str("procedure", procedure).Msg("call rejected")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
