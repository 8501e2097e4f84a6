package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sui-wrapped/internal/types"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": &types.ServiceError{Code: code, Message: message},
	})
}
