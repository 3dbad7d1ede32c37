// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// maxScrapeBytes bounds how much of a page the scraper reads.
const maxScrapeBytes = 256 * 1024

var (
	// titlePattern extracts the contents of the first <title> element.
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// discardBlockPattern matches elements whose text content is noise.
	discardBlockPattern = regexp.MustCompile(`(?is)<(script|style|nav|footer|header)[^>]*>.*?</(script|style|nav|footer|header)>`)

	// tagPattern matches any remaining HTML tag.
	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ScraperTool fetches configured seed pages and extracts their text.
// It covers sources the structured APIs cannot reach; an empty URL
// list makes it a no-op.
type ScraperTool struct {
	Client *http.Client
	Config types.ToolConfig
}

// Name returns the tool identifier.
func (t *ScraperTool) Name() string { return "scraper" }

// Search fetches every configured URL and returns one normalized result
// per page that could be read. Pages that fail to fetch are skipped; the
// tool fails only if every page does.
func (t *ScraperTool) Search(ctx context.Context, query string) ([]types.RawResult, error) {
	if len(t.Config.ScrapeURLs) == 0 {
		return nil, nil
	}

	var results []types.RawResult
	var lastErr error
	for _, pageURL := range t.Config.ScrapeURLs {
		r, err := t.scrape(ctx, pageURL)
		if err != nil {
			lastErr = err
			continue
		}
		results = append(results, r)
	}

	if len(results) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all %d pages failed, last error: %w", len(t.Config.ScrapeURLs), lastErr)
	}
	return results, nil
}

// scrape fetches one page and extracts its title and visible text.
func (t *ScraperTool) scrape(ctx context.Context, pageURL string) (types.RawResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return types.RawResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return types.RawResult{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.RawResult{}, fmt.Errorf("fetching %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return types.RawResult{}, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	title, text := extractPageText(string(body))
	if title == "" {
		title = pageURL
	}

	return types.RawResult{
		Title:   title,
		URL:     pageURL,
		Snippet: truncateSnippet(text, 1000),
		Source:  "scraper",
	}, nil
}

// extractPageText pulls the page title and a whitespace-collapsed text
// rendering of the body, with script, style, and chrome elements removed.
func extractPageText(html string) (title, text string) {
	if m := titlePattern.FindStringSubmatch(html); m != nil {
		title = strings.TrimSpace(m[1])
	}

	stripped := discardBlockPattern.ReplaceAllString(html, " ")
	stripped = tagPattern.ReplaceAllString(stripped, " ")
	text = strings.Join(strings.Fields(stripped), " ")
	return title, text
}
