package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/matzehuels/gridkit/pkg/errors"
)

// maxBodyBytes bounds request bodies. A full layout is a few kilobytes.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownWidget, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDragTargetInvalid, errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidBreakpoint, errors.ErrCodeInvalidPage:
		return http.StatusBadRequest
	case errors.ErrCodeGestureInProgress, errors.ErrCodeNoGesture:
		return http.StatusConflict
	case errors.ErrCodeOverlap:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := StatusFor(err)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError && errors.GetCode(err) == "" {
		s.logger.Error("unhandled error", "err", err)
		msg = "internal error"
	}
	s.writeJSON(w, status, ErrorBody{Code: code, Message: msg})
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	return decodeBody(r, v, false)
}

// decodeOptional is decode for routes whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	return decodeBody(r, v, true)
}

func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || (optional && err == io.EOF) {
		return nil
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
}
