package capability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

type stubCapability struct {
	name    string
	content string
	failing bool

	mu    sync.Mutex
	calls int
}

func (s *stubCapability) Name() string { return s.name }

func (s *stubCapability) Execute(ctx context.Context, query string) domain.ToolResponse {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	resp := domain.ToolResponse{ToolName: s.name, Content: s.content + ": " + query, Timestamp: time.Now()}
	if s.failing {
		resp.Metadata = map[string]any{"error": true}
	}
	return resp
}

func (s *stubCapability) ValidateResponse(raw map[string]any) bool { return raw != nil }

func (s *stubCapability) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRegistry_OrderAndDefault(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Default(); ok {
		t.Fatal("expected no default in an empty registry")
	}

	r.Register(&stubCapability{name: "web_search"})
	r.Register(&stubCapability{name: "wikipedia"})

	if got := r.Names(); len(got) != 2 || got[0] != "web_search" || got[1] != "wikipedia" {
		t.Fatalf("unexpected names %v", got)
	}
	d, ok := r.Default()
	if !ok || d.Name() != "web_search" {
		t.Fatalf("expected web_search as default, got %v", d)
	}
	if _, ok := r.Get("calculator"); ok {
		t.Fatal("expected unknown capability missing")
	}
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	first := &stubCapability{name: "a", content: "old"}
	r := NewRegistry(first, &stubCapability{name: "b"})

	replacement := &stubCapability{name: "a", content: "new"}
	r.Register(replacement)

	if r.Len() != 2 {
		t.Fatalf("expected 2 capabilities, got %d", r.Len())
	}
	got, _ := r.Get("a")
	if got != replacement {
		t.Fatal("expected replacement registered")
	}
	if names := r.Names(); names[0] != "a" {
		t.Fatalf("expected a to stay first, got %v", names)
	}
}
