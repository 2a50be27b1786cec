package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

const (
	WikipediaName      = "wikipedia"
	wikipediaAPIURL    = "https://en.wikipedia.org/w/api.php"
	wikipediaTopK      = 3
	wikipediaMaxChars  = 4000
	wikipediaUserAgent = "msa-toy/1.0 (research agent)"
)

// Wikipedia searches English Wikipedia and returns page extracts.
type Wikipedia struct {
	baseURL    string
	topK       int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWikipedia(logger *zap.Logger) *Wikipedia {
	return &Wikipedia{
		baseURL:    wikipediaAPIURL,
		topK:       wikipediaTopK,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another MediaWiki api.php.
func (w *Wikipedia) WithBaseURL(u string) *Wikipedia {
	w.baseURL = u
	return w
}

func (w *Wikipedia) Name() string {
	return WikipediaName
}

type wikiPage struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
	Extract string `json:"extract"`
}

func (w *Wikipedia) Execute(ctx context.Context, query string) domain.ToolResponse {
	pages, err := w.search(ctx, query)
	if err != nil {
		w.logger.Warn("wikipedia search failed", zap.Error(err))
		return domain.ToolResponse{
			ToolName:    WikipediaName,
			Content:     fmt.Sprintf("Error searching Wikipedia: %v", err),
			Metadata:    map[string]any{"error": true, "results_count": 0},
			RawResponse: map[string]any{"error": err.Error()},
			Timestamp:   time.Now(),
		}
	}

	documents := make([]any, 0, len(pages))
	for _, p := range pages {
		documents = append(documents, map[string]any{
			"page_content": p.Extract,
			"metadata":     map[string]any{"title": p.Title, "pageid": p.PageID},
		})
	}
	resp := domain.ToolResponse{
		ToolName:    WikipediaName,
		RawResponse: map[string]any{"query": query, "documents": documents},
		Timestamp:   time.Now(),
	}
	if len(pages) == 0 {
		resp.Content = "No results found on Wikipedia."
		resp.Metadata = map[string]any{"results_count": 0}
		return resp
	}

	parts := make([]string, 0, len(pages))
	titles := make([]string, 0, len(pages))
	for i, p := range pages {
		parts = append(parts, fmt.Sprintf("Result %d:\n%s", i+1, p.Extract))
		titles = append(titles, orDefault(p.Title, "Unknown"))
	}
	resp.Content = strings.Join(parts, "\n\n")
	resp.Metadata = map[string]any{"results_count": len(pages), "sources": titles}
	return resp
}

func (w *Wikipedia) search(ctx context.Context, query string) ([]wikiPage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(w.topK))
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exintro", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read wikipedia response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Query struct {
			Pages []wikiPage `json:"pages"`
		} `json:"query"`
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal wikipedia response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("wikipedia API error: %s", result.Error.Info)
	}

	pages := result.Query.Pages
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	for i := range pages {
		pages[i].Extract = truncateRunes(pages[i].Extract, wikipediaMaxChars)
	}
	return pages, nil
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ValidateResponse accepts a documents list whose entries all carry
// page_content, or a plain content string.
func (w *Wikipedia) ValidateResponse(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	if _, ok := raw["error"]; ok {
		return false
	}
	if docs, ok := raw["documents"]; ok {
		list, isList := docs.([]any)
		if !isList {
			return false
		}
		for _, d := range list {
			m, isMap := d.(map[string]any)
			if !isMap {
				return false
			}
			if _, has := m["page_content"]; !has {
				return false
			}
		}
		return true
	}
	_, ok := raw["content"].(string)
	return ok
}
