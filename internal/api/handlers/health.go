package handlers

import (
	"net/http"

	"github.com/mpaguilar/msa-toy/internal/resilience"
)

type HealthHandler struct {
	breakers []*resilience.CircuitBreaker
}

func NewHealthHandler(breakers []*resilience.CircuitBreaker) *HealthHandler {
	return &HealthHandler{breakers: breakers}
}

type healthResponse struct {
	Status          string                        `json:"status"`
	CircuitBreakers []resilience.CircuitStateInfo `json:"circuit_breakers"`
}

// Health reports "degraded" while any capability circuit is open. The status
// code stays 200 because the service can still answer from other capabilities.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", CircuitBreakers: []resilience.CircuitStateInfo{}}
	for _, b := range h.breakers {
		info := b.StateInfo()
		if b.State() == resilience.CircuitOpen {
			resp.Status = "degraded"
		}
		resp.CircuitBreakers = append(resp.CircuitBreakers, info)
	}
	writeJSON(w, http.StatusOK, resp)
}
