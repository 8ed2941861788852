package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/apperrors"
)

// errorBody is the wire shape for every non-2xx response: {"message": string}.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to the HTTP status taxonomy from spec.md §7 (NotFound
// -> 404, Mismatch -> 400, everything else -> 500) and logs unexpected
// (500-class) errors at warn.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if ae, ok := err.(*apperrors.AppError); ok {
		status = ae.Kind.StatusCode()
	}
	if status >= 500 {
		s.log.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Message: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Message: message})
}
