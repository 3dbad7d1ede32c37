// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// wikipediaAPIBase is the MediaWiki search endpoint. Declared as a var
// so tests can substitute an httptest server.
var wikipediaAPIBase = "https://en.wikipedia.org/w/api.php"

// htmlTagPattern matches HTML markup in MediaWiki search snippets.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// WikipediaTool queries the MediaWiki search API for encyclopedia
// articles.
type WikipediaTool struct {
	Client *http.Client
	Config types.ToolConfig
}

// Name returns the tool identifier.
func (t *WikipediaTool) Name() string { return "wikipedia" }

// Search queries the MediaWiki API and returns normalized results. The
// article URL is derived from the page title.
func (t *WikipediaTool) Search(ctx context.Context, query string) ([]types.RawResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Wikipedia query")
	}

	maxResults := t.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprintf("%d", maxResults)},
		"format":   {"json"},
	}
	reqURL := wikipediaAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Wikipedia API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wikipedia API returned HTTP %d", resp.StatusCode)
	}

	var wr wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing Wikipedia response: %w", err)
	}

	var results []types.RawResult
	for _, page := range wr.Query.Search {
		if page.Title == "" {
			continue
		}
		results = append(results, types.RawResult{
			Title:   page.Title,
			URL:     articleURL(page.Title),
			Snippet: truncateSnippet(stripSnippetHTML(page.Snippet), 500),
			Source:  "wikipedia",
		})
	}
	return results, nil
}

// articleURL builds the canonical article URL from a page title.
func articleURL(title string) string {
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// stripSnippetHTML removes markup the search API embeds in snippets.
func stripSnippetHTML(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	return strings.TrimSpace(s)
}

// MediaWiki search API JSON structures.
type wikipediaResponse struct {
	Query wikipediaQuery `json:"query"`
}

type wikipediaQuery struct {
	Search []wikipediaPage `json:"search"`
}

type wikipediaPage struct {
	Title   string `json:"title"`
	PageID  int    `json:"pageid"`
	Snippet string `json:"snippet"`
}
