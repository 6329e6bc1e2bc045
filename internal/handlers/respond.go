package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shaibs3/holovote/internal/apperr"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError renders err as {"detail"}; server-side causes are only logged
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, zap.Error(err))
	}
	writeDetail(w, status, apperr.Detail(err, fallback))
}
