package server

import (
	"encoding/json"
	"net/http"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	if _, ok := body["error"]; !ok {
		body["error"] = nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch perrors.GetCode(err) {
	case perrors.ErrCodeInvalidInput, perrors.ErrCodeInvalidPath, perrors.ErrCodeMalformedDocument:
		return http.StatusBadRequest
	case perrors.ErrCodeDecode:
		return http.StatusUnprocessableEntity
	case perrors.ErrCodeNotFound:
		return http.StatusNotFound
	case perrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case perrors.ErrCodeForbidden:
		return http.StatusForbidden
	case perrors.ErrCodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := perrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, envelope{"error": msg})
}
