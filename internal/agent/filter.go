// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

const filterSystem = "You rank search results for relevance to a research query. " +
	"Reply with only a JSON array of the numbers of the results to keep, most relevant first. No prose."

// filter asks the model to pick the most relevant results, in one call.
// An empty input short-circuits without touching the model. When the
// reply cannot be parsed as an index list the whole input is kept, so a
// confused model degrades ranking quality but never loses sources. The
// returned set never exceeds MaxCandidates.
func (a *Agent) filter(ctx context.Context, st *runState) ([]types.RawResult, error) {
	if len(st.raw) == 0 {
		return nil, nil
	}
	max := a.Config.Agent.MaxCandidates
	if max <= 0 {
		max = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Research query: %s\n\nSearch results:\n", st.query)
	for i, r := range st.raw {
		fmt.Fprintf(&b, "%d. [%s] %s\n   %s\n   %s\n", i+1, r.Source, r.Title, r.URL, r.Snippet)
	}
	fmt.Fprintf(&b, "\nSelect up to %d results that best answer the query. Reply with a JSON array of result numbers.", max)

	reply, err := a.Model.Invoke(ctx, filterSystem, b.String())
	if err != nil {
		return nil, err
	}

	indices, ok := parseIndexList(reply)
	if !ok {
		fmt.Fprintf(a.Out, "warning: unparsable filter reply, keeping all results\n")
		return capCandidates(st.raw, max), nil
	}

	seen := make(map[int]bool)
	var kept []types.RawResult
	for _, idx := range indices {
		if idx < 1 || idx > len(st.raw) || seen[idx] {
			continue
		}
		seen[idx] = true
		kept = append(kept, st.raw[idx-1])
		if len(kept) == max {
			break
		}
	}
	if len(kept) == 0 {
		fmt.Fprintf(a.Out, "warning: filter selected nothing valid, keeping all results\n")
		return capCandidates(st.raw, max), nil
	}
	return kept, nil
}

// parseIndexList extracts a JSON array of result numbers from a model
// reply, tolerating surrounding prose and code fences.
func parseIndexList(reply string) ([]int, bool) {
	reply = stripFences(reply)
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var indices []int
	if err := json.Unmarshal([]byte(reply[start:end+1]), &indices); err != nil {
		return nil, false
	}
	return indices, true
}

func capCandidates(results []types.RawResult, max int) []types.RawResult {
	if len(results) > max {
		return results[:max]
	}
	return results
}
