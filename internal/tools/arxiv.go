// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivTool queries the arXiv API for preprints.
type ArxivTool struct {
	Client *http.Client
	Config types.ToolConfig
}

// Name returns the tool identifier.
func (t *ArxivTool) Name() string { return "arxiv" }

// Search queries the arXiv API and returns normalized results.
func (t *ArxivTool) Search(ctx context.Context, query string) ([]types.RawResult, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := t.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.RawResult
	for _, entry := range feed.Entries {
		title := strings.TrimSpace(strings.Join(strings.Fields(entry.Title), " "))
		if title == "" {
			continue
		}
		results = append(results, types.RawResult{
			Title:   title,
			URL:     strings.TrimSpace(entry.ID),
			Snippet: truncateSnippet(strings.TrimSpace(entry.Summary), 500),
			Source:  "arxiv",
		})
	}
	return results, nil
}

// buildArxivQuery constructs the search_query parameter from free text.
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
}
