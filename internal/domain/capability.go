package domain

import (
	"context"
	"time"
)

// ToolResponse is what a capability returns for one query.
// A present metadata["error"] marks the call as failed.
type ToolResponse struct {
	ToolName    string         `json:"tool_name"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	RawResponse map[string]any `json:"raw_response"`
	Timestamp   time.Time      `json:"timestamp"`
}

func (r ToolResponse) HasError() bool {
	if r.Metadata == nil {
		return false
	}
	_, ok := r.Metadata["error"]
	return ok
}

// Capability is an external information-retrieval action.
type Capability interface {
	Name() string
	Execute(ctx context.Context, query string) ToolResponse
	ValidateResponse(raw map[string]any) bool
}
