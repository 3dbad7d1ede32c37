// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools implements the search tool adapter layer: a uniform
// interface over heterogeneous information sources, each with local
// retry and a normalizer into the shared RawResult shape. A failure in
// one tool never aborts the others; the layer returns the union of
// whatever succeeded.
package tools

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Tool searches a single information source. Each adapter (DuckDuckGo,
// Wikipedia, arXiv, scraper) implements this interface per the Strategy
// pattern; adding a fifth source means adding one adapter.
type Tool interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.RawResult, error)
}

// ToolError records a tool that failed after exhausting its retries.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string { return e.Tool + ": " + e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Output holds the aggregated results of one fan-out plus a record of
// which tools were attempted and which contributed results.
type Output struct {
	Results        []types.RawResult
	ToolsAttempted []string
	ToolsUsed      []string
	ToolErrors     []string
}

// RunAll fans the query out to all tools concurrently, each behind the
// shared rate gate, and collects the union of successful results. Tool
// failures are reported as warnings on w and recorded in ToolErrors;
// they never fail the fan-out. If every tool fails the output is empty
// but the error is still nil — an empty-but-valid input for filtering.
func RunAll(ctx context.Context, query string, tools []Tool, limiter *Limiter, cfg types.ToolConfig, w io.Writer) Output {
	type toolResult struct {
		name    string
		results []types.RawResult
		err     error
	}

	ch := make(chan toolResult, len(tools))
	var wg sync.WaitGroup

	for _, t := range tools {
		wg.Add(1)
		go func(t Tool) {
			defer wg.Done()
			if err := limiter.Wait(ctx, t.Name()); err != nil {
				ch <- toolResult{name: t.Name(), err: err}
				return
			}
			results, err := searchWithRetry(ctx, t, query, cfg.MaxRetries, cfg.RetryBaseDelay)
			ch <- toolResult{name: t.Name(), results: results, err: err}
		}(t)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var out Output
	for tr := range ch {
		out.ToolsAttempted = append(out.ToolsAttempted, tr.name)
		if tr.err != nil {
			te := &ToolError{Tool: tr.name, Err: tr.err}
			out.ToolErrors = append(out.ToolErrors, te.Error())
			fmt.Fprintf(w, "warning: tool %s failed: %v\n", tr.name, tr.err)
			continue
		}
		if len(tr.results) > 0 {
			out.ToolsUsed = append(out.ToolsUsed, tr.name)
		}
		out.Results = append(out.Results, tr.results...)
	}

	sort.Strings(out.ToolsAttempted)
	sort.Strings(out.ToolsUsed)
	return out
}

// searchWithRetry calls the tool with exponential backoff: baseDelay,
// doubled each attempt. Retry is local to the adapter call and invisible
// to the orchestrator beyond the final outcome.
func searchWithRetry(ctx context.Context, t Tool, query string, maxRetries int, baseDelay time.Duration) ([]types.RawResult, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		results, err := t.Search(ctx, query)
		if err == nil {
			return results, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// New builds the set of enabled tools from configuration. All adapters
// share one HTTP client.
func New(cfg types.ToolConfig, client *http.Client) []Tool {
	var ts []Tool
	if cfg.EnableDuckDuckGo {
		ts = append(ts, &DuckDuckGoTool{Client: client, Config: cfg})
	}
	if cfg.EnableWikipedia {
		ts = append(ts, &WikipediaTool{Client: client, Config: cfg})
	}
	if cfg.EnableArxiv {
		ts = append(ts, &ArxivTool{Client: client, Config: cfg})
	}
	if len(cfg.ScrapeURLs) > 0 {
		ts = append(ts, &ScraperTool{Client: client, Config: cfg})
	}
	return ts
}

// sourceTypes maps tool names to the citation category their results
// belong to.
var sourceTypes = map[string]types.SourceType{
	"arxiv":      types.SourcePaper,
	"wikipedia":  types.SourceWiki,
	"duckduckgo": types.SourceWeb,
	"scraper":    types.SourceArticle,
}

// ToCitation maps a normalized raw result into a Citation. The mapping
// is deterministic: the same input always yields an identical Citation.
func ToCitation(r types.RawResult) types.Citation {
	st, ok := sourceTypes[r.Source]
	if !ok {
		st = types.SourceWeb
	}
	title := r.Title
	if title == "" {
		title = r.URL
	}
	return types.Citation{
		Author:     "Unknown",
		Title:      title,
		URL:        r.URL,
		Year:       nil,
		SourceType: st,
	}
}

// truncateSnippet bounds snippet text carried through the pipeline.
func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
