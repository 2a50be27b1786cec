package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/api/middleware"
	"go.uber.org/zap"
)

// Answerer runs one query to completion. *service.Controller implements it.
type Answerer interface {
	Process(ctx context.Context, query string) string
}

type QueryHandler struct {
	answerer Answerer
	logger   *zap.Logger
}

func NewQueryHandler(answerer Answerer, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{answerer: answerer, logger: logger}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer    string `json:"answer"`
	RequestID string `json:"request_id"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	h.logger.Debug("query received", zap.String("request_id", requestID))

	answer := h.answerer.Process(r.Context(), query)

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		RequestID: requestID,
	})
}
