package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWikipedia_Execute(t *testing.T) {
	long := strings.Repeat("x", wikipediaMaxChars+100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("generator"))
		assert.Equal(t, "Texas Senate", q.Get("gsrsearch"))
		assert.Equal(t, "3", q.Get("gsrlimit"))
		assert.Equal(t, wikipediaUserAgent, r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"query":{"pages":[
			{"pageid":2,"title":"Second","index":2,"extract":"` + long + `"},
			{"pageid":1,"title":"Texas Senate","index":1,"extract":"The Texas Senate is the upper house."}
		]}}`))
	}))
	defer server.Close()

	resp := NewWikipedia(zap.NewNop()).WithBaseURL(server.URL).Execute(context.Background(), "Texas Senate")

	require.False(t, resp.HasError(), resp.Content)
	assert.Equal(t, WikipediaName, resp.ToolName)
	assert.True(t, strings.HasPrefix(resp.Content, "Result 1:\nThe Texas Senate is the upper house.\n\nResult 2:\nxxx"))
	assert.Equal(t, len("Result 1:\nThe Texas Senate is the upper house.\n\nResult 2:\n")+wikipediaMaxChars, len(resp.Content))
	assert.Equal(t, 2, resp.Metadata["results_count"])
	assert.Equal(t, []string{"Texas Senate", "Second"}, resp.Metadata["sources"])
	assert.Equal(t, "Texas Senate", resp.RawResponse["query"])

	w := NewWikipedia(zap.NewNop())
	assert.True(t, w.ValidateResponse(resp.RawResponse))
}

func TestWikipedia_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"batchcomplete":true}`))
	}))
	defer server.Close()

	resp := NewWikipedia(zap.NewNop()).WithBaseURL(server.URL).Execute(context.Background(), "zzzz")

	assert.Equal(t, "No results found on Wikipedia.", resp.Content)
	assert.Equal(t, 0, resp.Metadata["results_count"])
	assert.False(t, resp.HasError())
}

func TestWikipedia_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":"badvalue","info":"Unrecognized value"}}`))
	}))
	defer server.Close()

	resp := NewWikipedia(zap.NewNop()).WithBaseURL(server.URL).Execute(context.Background(), "q")

	assert.Equal(t, "Error searching Wikipedia: wikipedia API error: Unrecognized value", resp.Content)
	assert.Equal(t, true, resp.Metadata["error"])
	assert.Equal(t, "wikipedia API error: Unrecognized value", resp.RawResponse["error"])
}

func TestWikipedia_ValidateResponse(t *testing.T) {
	w := NewWikipedia(zap.NewNop())

	assert.False(t, w.ValidateResponse(nil))
	assert.False(t, w.ValidateResponse(map[string]any{"error": "x"}))
	assert.True(t, w.ValidateResponse(map[string]any{"documents": []any{}}))
	assert.True(t, w.ValidateResponse(map[string]any{"documents": []any{map[string]any{"page_content": "p"}}}))
	assert.False(t, w.ValidateResponse(map[string]any{"documents": []any{map[string]any{"title": "t"}}}))
	assert.False(t, w.ValidateResponse(map[string]any{"documents": []any{"string"}}))
	assert.True(t, w.ValidateResponse(map[string]any{"content": "text"}))
}

func TestWikipedia_TruncatesOnRuneBoundary(t *testing.T) {
	extract := strings.Repeat("a", wikipediaMaxChars-1) + "é tail"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":1,"title":"Accent","index":1,"extract":"` + extract + `"}]}}`))
	}))
	defer server.Close()

	resp := NewWikipedia(zap.NewNop()).WithBaseURL(server.URL).Execute(context.Background(), "accent")

	require.False(t, resp.HasError(), resp.Content)
	assert.True(t, utf8.ValidString(resp.Content))
	assert.True(t, strings.HasSuffix(resp.Content, "aé"), resp.Content[len(resp.Content)-10:])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "héé", truncateRunes("hééllo", 3))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, "日本語", truncateRunes("日本語", 3))
}
