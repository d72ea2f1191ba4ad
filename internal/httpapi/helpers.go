package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeRBACError maps the service error taxonomy onto HTTP statuses. The
// authorization-denied message is the exact string admin UIs key on.
func writeRBACError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, rbac.ErrAuthorizationDenied):
		writeError(w, http.StatusForbidden, "Unauthorized: Admin access required")
	case errors.Is(err, rbac.ErrValidation):
		writeError(w, http.StatusBadRequest, errMessage(err))
	case errors.Is(err, rbac.ErrConflict):
		writeError(w, http.StatusConflict, errMessage(err))
	case errors.Is(err, rbac.ErrNotFound):
		writeError(w, http.StatusNotFound, errMessage(err))
	case errors.Is(err, rbac.ErrBackend):
		writeError(w, http.StatusServiceUnavailable, "backend temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// errMessage strips the package prefix so clients see the human part only.
func errMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "rbac: ")
}
