package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

const (
	WebSearchName      = "web_search"
	serpAPIURL         = "https://serpapi.com/search.json"
	webSearchTopN      = 5
	defaultHTTPTimeout = 30 * time.Second
)

// WebSearch queries Google through SerpAPI.
type WebSearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebSearch(apiKey string, logger *zap.Logger) (*WebSearch, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SERPAPI_API_KEY is required for %s", WebSearchName)
	}
	return &WebSearch{
		apiKey:     apiKey,
		baseURL:    serpAPIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}, nil
}

// WithBaseURL points the client at another SerpAPI-compatible endpoint.
func (w *WebSearch) WithBaseURL(u string) *WebSearch {
	w.baseURL = u
	return w
}

func (w *WebSearch) Name() string {
	return WebSearchName
}

type serpResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (w *WebSearch) Execute(ctx context.Context, query string) domain.ToolResponse {
	raw, results, err := w.search(ctx, query)
	if err != nil {
		w.logger.Warn("web search failed", zap.Error(err))
		return domain.ToolResponse{
			ToolName:    WebSearchName,
			Content:     fmt.Sprintf("Error searching the web: %v", err),
			Metadata:    map[string]any{"error": true, "results_count": 0},
			RawResponse: map[string]any{"error": err.Error()},
			Timestamp:   time.Now(),
		}
	}

	resp := domain.ToolResponse{
		ToolName:    WebSearchName,
		RawResponse: raw,
		Timestamp:   time.Now(),
	}
	if len(results) == 0 {
		resp.Content = "No results found on the web."
		resp.Metadata = map[string]any{"results_count": 0}
		return resp
	}

	top := results
	if len(top) > webSearchTopN {
		top = top[:webSearchTopN]
	}
	parts := make([]string, 0, len(top))
	sources := make([]string, 0, len(top))
	for i, r := range top {
		parts = append(parts, fmt.Sprintf("Result %d:\nTitle: %s\nLink: %s\nSnippet: %s",
			i+1, orDefault(r.Title, "No title"), orDefault(r.Link, "No link"), orDefault(r.Snippet, "No snippet")))
		sources = append(sources, orDefault(r.Link, "Unknown"))
	}
	resp.Content = strings.Join(parts, "\n\n")
	resp.Metadata = map[string]any{"results_count": len(results), "sources": sources}
	return resp
}

func (w *WebSearch) search(ctx context.Context, query string) (map[string]any, []serpResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", w.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("search request failed: %w", redactURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("unmarshal search response: %w", err)
	}
	if msg, ok := raw["error"].(string); ok && msg != "" {
		return nil, nil, fmt.Errorf("search API error: %s", msg)
	}

	var parsed struct {
		OrganicResults []serpResult `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("unmarshal organic results: %w", err)
	}
	return raw, parsed.OrganicResults, nil
}

// ValidateResponse accepts a raw SerpAPI reply with an organic_results list
// or a plain content string.
func (w *WebSearch) ValidateResponse(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	if _, ok := raw["error"]; ok {
		return false
	}
	if results, ok := raw["organic_results"]; ok {
		_, isList := results.([]any)
		return isList
	}
	_, ok := raw["content"].(string)
	return ok
}

// redactURLError drops the request URL, which carries the API key, from
// transport errors.
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	host := ue.URL
	if u, perr := url.Parse(ue.URL); perr == nil {
		host = u.Host
	}
	return fmt.Errorf("%s %s: %w", ue.Op, host, ue.Err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
