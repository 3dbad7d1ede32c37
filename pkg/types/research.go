// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-agent pipeline.
// The record model (Citation, Finding, QueryMetadata, ResearchSummary) carries
// its own field-level invariants: each type exposes a Validate method so the
// validation stage can check a parsed draft without knowing field details.
package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SourceType categorizes where a citation came from.
type SourceType string

const (
	SourcePaper   SourceType = "paper"
	SourceArticle SourceType = "article"
	SourceWiki    SourceType = "wiki"
	SourceWeb     SourceType = "web"
)

// validSourceTypes is the set of accepted SourceType values.
var validSourceTypes = map[SourceType]bool{
	SourcePaper:   true,
	SourceArticle: true,
	SourceWiki:    true,
	SourceWeb:     true,
}

// RawResult is a single normalized search result from one tool invocation.
// Every adapter maps its native shape into this form before returning, so
// downstream stages see one shape regardless of source.
type RawResult struct {
	// Title is the result title as returned by the tool.
	Title string `json:"title" yaml:"title"`

	// URL is the locator of the source. May be empty for tools that
	// return text without a stable address.
	URL string `json:"url" yaml:"url"`

	// Snippet is a text excerpt or summary from the source.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Source identifies the tool that produced this result
	// (e.g. "duckduckgo", "wikipedia", "arxiv", "scraper").
	Source string `json:"source" yaml:"source"`
}

// Citation is a structured reference to a source used in a synthesis.
// Immutable once constructed.
type Citation struct {
	// Author is the author or publisher name ("Unknown" when the
	// source does not report one).
	Author string `json:"author" yaml:"author"`

	// Title is the title of the cited work.
	Title string `json:"title" yaml:"title"`

	// URL locates the source. Required; must parse as a URL.
	URL string `json:"url" yaml:"url"`

	// Year is the publication year, or nil when unknown.
	Year *int `json:"year" yaml:"year"`

	// SourceType categorizes the source: paper, article, wiki, or web.
	SourceType SourceType `json:"source_type" yaml:"source_type"`
}

// Validate checks the citation invariants: title and URL present, URL
// syntactically valid, source type a member of the enum, and year (when
// set) within [1900, next year].
func (c Citation) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("citation: title is required")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("citation %q: url is required", c.Title)
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("citation %q: invalid url %q: %w", c.Title, c.URL, err)
	}
	if !validSourceTypes[c.SourceType] {
		return fmt.Errorf("citation %q: invalid source_type %q (want paper, article, wiki, or web)", c.Title, c.SourceType)
	}
	if c.Year != nil {
		maxYear := time.Now().Year() + 1
		if *c.Year < 1900 || *c.Year > maxYear {
			return fmt.Errorf("citation %q: year %d not in range [1900, %d]", c.Title, *c.Year, maxYear)
		}
	}
	return nil
}

// Finding is a single research claim with evidence and a confidence score.
type Finding struct {
	// Claim is the key finding or assertion.
	Claim string `json:"claim" yaml:"claim"`

	// Evidence is the supporting context drawn from the sources.
	Evidence string `json:"evidence" yaml:"evidence"`

	// Confidence grades the claim from 0.0 (speculative) to 1.0
	// (well-supported).
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Citations lists the sources backing this finding. May be empty,
	// though a finding in a final summary should carry at least one.
	Citations []Citation `json:"citations" yaml:"citations"`
}

// Validate checks the finding invariants: non-empty claim and evidence,
// confidence within [0, 1], and every citation valid.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.Claim) == "" {
		return fmt.Errorf("finding: claim is required")
	}
	if strings.TrimSpace(f.Evidence) == "" {
		return fmt.Errorf("finding %q: evidence is required", truncateField(f.Claim))
	}
	if f.Confidence < 0.0 || f.Confidence > 1.0 {
		return fmt.Errorf("finding %q: confidence %g out of range [0,1]", truncateField(f.Claim), f.Confidence)
	}
	for i, c := range f.Citations {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("finding %q: citation %d: %w", truncateField(f.Claim), i, err)
		}
	}
	return nil
}

// QueryMetadata holds provenance and performance data for one run.
type QueryMetadata struct {
	// QueryTimeSeconds is the total wall-clock time for the run.
	QueryTimeSeconds float64 `json:"query_time_seconds" yaml:"query_time_seconds"`

	// SourcesFound is the total number of raw results retrieved across
	// all tools.
	SourcesFound int `json:"sources_found" yaml:"sources_found"`

	// SourcesUsed is the number of results that survived filtering into
	// the synthesis. Never exceeds SourcesFound.
	SourcesUsed int `json:"sources_used" yaml:"sources_used"`

	// ToolsUsed names the tools that returned results for this run.
	ToolsUsed []string `json:"tools_used" yaml:"tools_used"`

	// Timestamp is the run start time in RFC 3339.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// ParseSuccess reports whether a draft passed schema validation
	// before retries were exhausted.
	ParseSuccess bool `json:"parse_success" yaml:"parse_success"`

	// RetryCount is the number of synthesis retries spent on this run.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
}

// Validate checks the metadata invariants. maxRetries is the configured
// retry ceiling; pass a negative value to skip the retry bound check.
func (m QueryMetadata) Validate(maxRetries int) error {
	if m.QueryTimeSeconds < 0 {
		return fmt.Errorf("metadata: query_time_seconds %g is negative", m.QueryTimeSeconds)
	}
	if m.SourcesFound < 0 {
		return fmt.Errorf("metadata: sources_found %d is negative", m.SourcesFound)
	}
	if m.SourcesUsed < 0 {
		return fmt.Errorf("metadata: sources_used %d is negative", m.SourcesUsed)
	}
	if m.SourcesUsed > m.SourcesFound {
		return fmt.Errorf("metadata: sources_used %d exceeds sources_found %d", m.SourcesUsed, m.SourcesFound)
	}
	if m.RetryCount < 0 {
		return fmt.Errorf("metadata: retry_count %d is negative", m.RetryCount)
	}
	if maxRetries >= 0 && m.RetryCount > maxRetries {
		return fmt.Errorf("metadata: retry_count %d exceeds maximum %d", m.RetryCount, maxRetries)
	}
	return nil
}

// minSummaryLength is the minimum length of the summary text.
const minSummaryLength = 50

// ResearchSummary is the validated output of one complete run. It is
// constructed exactly once, by the validation stage, and never mutated
// afterwards. A failed validation produces no partial summary.
type ResearchSummary struct {
	// Topic is the high-level topic name the model assigned.
	Topic string `json:"topic" yaml:"topic"`

	// Query is the literal user input that started the run.
	Query string `json:"query" yaml:"query"`

	// Summary is the synthesized overview paragraph (at least 50 characters).
	Summary string `json:"summary" yaml:"summary"`

	// Findings lists the claims extracted from the sources, in the order
	// the model produced them.
	Findings []Finding `json:"findings" yaml:"findings"`

	// Sources is the deduplicated union of citations across findings.
	Sources []Citation `json:"sources" yaml:"sources"`

	// ToolsUsed names the tools that contributed results.
	ToolsUsed []string `json:"tools_used" yaml:"tools_used"`

	// Metadata carries run provenance and performance data.
	Metadata QueryMetadata `json:"metadata" yaml:"metadata"`
}

// Validate checks every record-model invariant on the summary and its
// nested findings, citations, and metadata. maxRetries bounds the
// metadata retry count; pass a negative value to skip that check.
func (s ResearchSummary) Validate(maxRetries int) error {
	if strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("summary: topic is required")
	}
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("summary: query is required")
	}
	if len(s.Summary) < minSummaryLength {
		return fmt.Errorf("summary: text is %d characters, need at least %d", len(s.Summary), minSummaryLength)
	}
	if len(s.Findings) == 0 {
		return fmt.Errorf("summary: at least one finding is required")
	}
	for i, f := range s.Findings {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("findings[%d]: %w", i, err)
		}
	}
	for i, c := range s.Sources {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	if err := s.Metadata.Validate(maxRetries); err != nil {
		return err
	}
	return nil
}

// truncateField shortens a field value for error messages.
func truncateField(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:37] + "..."
}
