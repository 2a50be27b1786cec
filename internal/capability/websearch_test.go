package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWebSearch_RequiresKey(t *testing.T) {
	_, err := NewWebSearch("", zap.NewNop())
	assert.Error(t, err)
}

func TestWebSearch_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "texas senators", r.URL.Query().Get("q"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))

		var results []string
		for i := 1; i <= 7; i++ {
			results = append(results, fmt.Sprintf(`{"title":"T%d","link":"https://example.com/%d","snippet":"S%d"}`, i, i, i))
		}
		results[1] = `{"link":"https://example.com/2"}`
		_, _ = fmt.Fprintf(w, `{"organic_results":[%s]}`, strings.Join(results, ","))
	}))
	defer server.Close()

	ws, err := NewWebSearch("serp-key", zap.NewNop())
	require.NoError(t, err)
	ws.WithBaseURL(server.URL)

	resp := ws.Execute(context.Background(), "texas senators")

	require.False(t, resp.HasError(), resp.Content)
	assert.Equal(t, WebSearchName, resp.ToolName)
	assert.True(t, strings.HasPrefix(resp.Content, "Result 1:\nTitle: T1\nLink: https://example.com/1\nSnippet: S1\n\nResult 2:\nTitle: No title\nLink: https://example.com/2\nSnippet: No snippet"))
	assert.Contains(t, resp.Content, "Result 5:")
	assert.NotContains(t, resp.Content, "Result 6:")
	assert.Equal(t, 7, resp.Metadata["results_count"])
	sources, ok := resp.Metadata["sources"].([]string)
	require.True(t, ok)
	assert.Len(t, sources, 5)
	assert.True(t, ws.ValidateResponse(resp.RawResponse))
}

func TestWebSearch_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"search_metadata":{}}`))
	}))
	defer server.Close()

	ws, _ := NewWebSearch("k", zap.NewNop())
	resp := ws.WithBaseURL(server.URL).Execute(context.Background(), "q")

	assert.Equal(t, "No results found on the web.", resp.Content)
	assert.Equal(t, 0, resp.Metadata["results_count"])
	assert.False(t, resp.HasError())
}

func TestWebSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		content string
	}{
		{"api error field", http.StatusOK, `{"error":"Invalid API key."}`, "Error searching the web: search API error: Invalid API key."},
		{"bad status", http.StatusInternalServerError, `oops`, "Error searching the web: search API returned status 500: oops"},
		{"bad json", http.StatusOK, `{`, "Error searching the web: unmarshal search response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ws, _ := NewWebSearch("k", zap.NewNop())
			resp := ws.WithBaseURL(server.URL).Execute(context.Background(), "q")

			assert.True(t, strings.HasPrefix(resp.Content, tt.content), resp.Content)
			assert.Equal(t, true, resp.Metadata["error"])
			assert.Equal(t, 0, resp.Metadata["results_count"])
			assert.Contains(t, resp.RawResponse, "error")
		})
	}
}

func TestWebSearch_ValidateResponse(t *testing.T) {
	ws, _ := NewWebSearch("k", zap.NewNop())

	assert.False(t, ws.ValidateResponse(nil))
	assert.False(t, ws.ValidateResponse(map[string]any{"error": "x"}))
	assert.True(t, ws.ValidateResponse(map[string]any{"organic_results": []any{}}))
	assert.False(t, ws.ValidateResponse(map[string]any{"organic_results": "nope"}))
	assert.True(t, ws.ValidateResponse(map[string]any{"content": "text"}))
	assert.False(t, ws.ValidateResponse(map[string]any{}))
}

func TestWebSearch_TransportErrorHidesAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	ws, err := NewWebSearch("SECRET-KEY-123", zap.NewNop())
	require.NoError(t, err)
	resp := ws.WithBaseURL(baseURL).Execute(context.Background(), "q")

	assert.True(t, resp.HasError())
	assert.True(t, strings.HasPrefix(resp.Content, "Error searching the web: search request failed: Get 127.0.0.1:"), resp.Content)
	assert.NotContains(t, resp.Content, "SECRET-KEY-123")
	assert.NotContains(t, fmt.Sprint(resp.RawResponse), "SECRET-KEY-123")
}
