// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bench replays a saved query file through the research
// pipeline and reports per-query outcomes. It holds no state of its
// own; each query is an independent run.
package bench

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Researcher is the capability bench needs from the pipeline: one
// query in, one summary out.
type Researcher interface {
	Run(ctx context.Context, query string) (*types.ResearchSummary, error)
}

// QueryFile is the on-disk list of queries to replay. The researcher
// can keep a standing file of benchmark queries and re-run them after
// prompt or configuration changes.
type QueryFile struct {
	Queries []Query `yaml:"queries"`
}

// Query is one benchmark entry.
type Query struct {
	// Query is the research question to run.
	Query string `yaml:"query"`

	// Note is an optional free-form annotation carried through to the
	// results.
	Note string `yaml:"note,omitempty"`
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("query file %s contains no queries", path)
	}
	return &qf, nil
}

// Result is the outcome of replaying one query.
type Result struct {
	Query        string  `yaml:"query"`
	Note         string  `yaml:"note,omitempty"`
	ParseSuccess bool    `yaml:"parse_success"`
	Findings     int     `yaml:"findings"`
	Retries      int     `yaml:"retries"`
	Seconds      float64 `yaml:"seconds"`
	Error        string  `yaml:"error,omitempty"`
}

// Run replays every query in the file sequentially and returns one
// Result per query. A failed run is recorded and the replay continues;
// a cancelled context stops it.
func Run(ctx context.Context, r Researcher, qf *QueryFile, w io.Writer) ([]Result, error) {
	var results []Result
	for i, q := range qf.Queries {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(qf.Queries), q.Query)
		res := Result{Query: q.Query, Note: q.Note}

		summary, err := r.Run(ctx, q.Query)
		if err != nil {
			res.Error = err.Error()
			fmt.Fprintf(w, "  error: %v\n", err)
			results = append(results, res)
			continue
		}

		res.ParseSuccess = summary.Metadata.ParseSuccess
		res.Findings = len(summary.Findings)
		res.Retries = summary.Metadata.RetryCount
		res.Seconds = summary.Metadata.QueryTimeSeconds
		fmt.Fprintf(w, "  ok=%v findings=%d retries=%d %.1fs\n",
			res.ParseSuccess, res.Findings, res.Retries, res.Seconds)
		results = append(results, res)
	}

	var passed int
	for _, res := range results {
		if res.ParseSuccess {
			passed++
		}
	}
	fmt.Fprintf(w, "\npassed %d of %d queries\n", passed, len(results))
	return results, nil
}

// WriteResults saves replay results to a YAML file.
func WriteResults(path string, results []Result) error {
	data, err := yaml.Marshal(map[string][]Result{"results": results})
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
