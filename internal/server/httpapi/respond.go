package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simvex/simvex-server/internal/common"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the shared error taxonomy to status codes. Clients
// get a reason string, never a transport stack trace.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorUploadFailed):
		writeError(w, http.StatusBadGateway, "upload failed")
	case errors.Is(err, common.ErrorRetrievalFailed):
		writeError(w, http.StatusBadGateway, "retrieval failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
