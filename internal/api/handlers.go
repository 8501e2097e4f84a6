package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sui-wrapped/internal/types"
)

// handleWrapped answers the polling status query for a wallet. The
// first poll for a fresh wallet kicks off indexing; the client keeps
// polling until the status flips to COMPLETED.
func (s *Server) handleWrapped(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if err := types.ValidateAddress(address); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	result, err := s.status.CheckStatus(r.Context(), address)
	if err != nil {
		s.logger.WithError(err).Error("status query failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to check wallet status")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handlePrice serves the cached native-asset USD price
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price := s.pricing.GetPrice(r.Context())
	respondJSON(w, http.StatusOK, map[string]float64{"price": price})
}

// handleHealth reports service and dependency health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	for name, dep := range map[string]HealthChecker{"postgres": s.db, "redis": s.redis} {
		if dep == nil {
			continue
		}
		if err := dep.Health(r.Context()); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
