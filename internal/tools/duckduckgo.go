// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// duckduckgoAPIBase is the DuckDuckGo Instant Answer endpoint. Declared
// as a var so tests can substitute an httptest server.
var duckduckgoAPIBase = "https://api.duckduckgo.com/"

// DuckDuckGoTool queries the DuckDuckGo Instant Answer API for general
// web results.
type DuckDuckGoTool struct {
	Client *http.Client
	Config types.ToolConfig
}

// Name returns the tool identifier.
func (t *DuckDuckGoTool) Name() string { return "duckduckgo" }

// Search queries DuckDuckGo and returns normalized results: the topic
// abstract (when present) followed by related topics, bounded to the
// configured maximum.
func (t *DuckDuckGoTool) Search(ctx context.Context, query string) ([]types.RawResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty DuckDuckGo query")
	}

	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
	}
	reqURL := duckduckgoAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo API returned HTTP %d", resp.StatusCode)
	}

	var dr duckduckgoResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo response: %w", err)
	}

	maxResults := t.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	var results []types.RawResult
	if dr.AbstractText != "" {
		title := dr.Heading
		if title == "" {
			title = query
		}
		results = append(results, types.RawResult{
			Title:   title,
			URL:     dr.AbstractURL,
			Snippet: truncateSnippet(dr.AbstractText, 500),
			Source:  "duckduckgo",
		})
	}

	for _, topic := range flattenTopics(dr.RelatedTopics) {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, types.RawResult{
			Title:   topicTitle(topic.Text),
			URL:     topic.FirstURL,
			Snippet: truncateSnippet(topic.Text, 500),
			Source:  "duckduckgo",
		})
	}

	return results, nil
}

// topicTitle derives a short title from a related-topic text, which
// DuckDuckGo formats as "Title - description".
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return truncateSnippet(text, 80)
}

// flattenTopics expands nested topic groups into a flat list.
func flattenTopics(topics []duckduckgoTopic) []duckduckgoTopic {
	var flat []duckduckgoTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

// DuckDuckGo Instant Answer API JSON structures.
type duckduckgoResponse struct {
	Heading       string            `json:"Heading"`
	AbstractText  string            `json:"AbstractText"`
	AbstractURL   string            `json:"AbstractURL"`
	RelatedTopics []duckduckgoTopic `json:"RelatedTopics"`
}

type duckduckgoTopic struct {
	Text     string            `json:"Text"`
	FirstURL string            `json:"FirstURL"`
	Topics   []duckduckgoTopic `json:"Topics"`
}
