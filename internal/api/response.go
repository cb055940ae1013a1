package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/piso3/piso/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its HTTP status. Client-visible errors are returned
// verbatim; anything else is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *model.Error
	if !errors.As(err, &e) {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonError(w, StatusFor(e.Kind), e.Message)
}

// StatusFor returns the HTTP status code for an error kind. A blocked turn is
// reported like a permission failure.
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindForbidden, model.KindConflict:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
