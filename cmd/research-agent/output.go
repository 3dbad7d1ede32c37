// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// printSummary writes a human-readable rendering of a research summary.
func printSummary(w io.Writer, s *types.ResearchSummary) {
	fmt.Fprintf(w, "\n%s\n%s\n\n", s.Topic, strings.Repeat("=", len(s.Topic)))
	fmt.Fprintf(w, "%s\n", s.Summary)

	if len(s.Findings) > 0 {
		fmt.Fprintf(w, "\nFindings:\n")
		for i, f := range s.Findings {
			fmt.Fprintf(w, "\n%d. %s\n", i+1, f.Claim)
			fmt.Fprintf(w, "   confidence %s %.1f\n", confidenceBar(f.Confidence), f.Confidence)
			fmt.Fprintf(w, "   %s\n", f.Evidence)
			for _, c := range f.Citations {
				fmt.Fprintf(w, "   - [%s] %s (%s)\n", c.SourceType, c.Title, c.URL)
			}
		}
	}

	if len(s.Sources) > 0 {
		fmt.Fprintf(w, "\nSources:\n")
		for _, c := range s.Sources {
			year := "n.d."
			if c.Year != nil {
				year = fmt.Sprintf("%d", *c.Year)
			}
			fmt.Fprintf(w, "  %s (%s). %s. %s\n", c.Author, year, c.Title, c.URL)
		}
	}

	md := s.Metadata
	fmt.Fprintf(w, "\nPerformance: %.1fs, %d sources found, %d used, tools %s, retries %d\n",
		md.QueryTimeSeconds, md.SourcesFound, md.SourcesUsed,
		strings.Join(md.ToolsUsed, "+"), md.RetryCount)
	if !md.ParseSuccess {
		fmt.Fprintf(w, "NOTE: this run did not produce a validated summary\n")
	}
}

// confidenceBar renders a ten-segment bar for a [0,1] score.
func confidenceBar(confidence float64) string {
	filled := int(confidence*10 + 0.5)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}

// saveSummary writes a validated summary to outputDir, named from the
// run timestamp and a slug of the query. Returns the file path.
func saveSummary(outputDir, format string, s *types.ResearchSummary) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.%s",
		time.Now().Format("20060102-150405"), querySlug(s.Query), format)
	path := filepath.Join(outputDir, name)

	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return "", fmt.Errorf("marshaling summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}
	return path, nil
}

// querySlug derives a short filesystem-safe name from a query.
func querySlug(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "query"
	}
	return slug
}
