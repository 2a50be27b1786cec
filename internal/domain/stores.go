package domain

import (
	"context"
	"errors"
)

var (
	ErrCacheMiss          = errors.New("cache miss")
	ErrNoStructuredOutput = errors.New("no structured output in response")
	ErrToolNotFound       = errors.New("tool not found")
	ErrUnknownProvider    = errors.New("unknown LLM provider")
)

// CacheStore is a raw byte store keyed by cache key. Expiry is decided by the
// caller from the entry contents, not by the backend.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}

// Schema asks an LLM client for a structured reply.
type Schema struct {
	Name         string
	Instructions string
}

// LLMResponse is the result of one LLM call. Clients fill whichever of Typed,
// Structured and Content they can; consumers read them in that order.
type LLMResponse struct {
	Typed      any
	Structured map[string]any
	Content    string
	Metadata   map[string]any
}

type LLMClient interface {
	Call(ctx context.Context, prompt string, schema *Schema) (*LLMResponse, error)
}
