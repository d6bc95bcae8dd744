package httpapi

import (
	"encoding/json"
	"net/http"

	"ollamadash/internal/daemon"
	"ollamadash/pkg/types"
)

// statusLabel classifies an HTTP status for ErrorResponse.Status.
func statusLabel(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return types.StatusValidationError
	case http.StatusServiceUnavailable:
		return types.StatusConnectionError
	default:
		return types.StatusError
	}
}

// httpStatus maps a gateway error onto a response code: missing input is the
// caller's fault, an unreachable daemon is a 503 and the rest are 500s.
func httpStatus(err error) int {
	switch {
	case daemon.IsValidation(err):
		return http.StatusBadRequest
	case daemon.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Status: statusLabel(status), Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Err(err).Msg("encode response")
	}
}
