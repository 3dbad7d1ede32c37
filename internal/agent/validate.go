// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/research-agent/pkg/types"
)

// validate parses a synthesis draft and checks every record-model
// invariant. On success it returns the completed summary with the
// query, tool list, deduplicated source union, and run metadata stamped
// in. On failure the returned error names the offending field and is
// fed back into the next synthesis attempt verbatim.
func (a *Agent) validate(draft string, st *runState) (*types.ResearchSummary, error) {
	var s types.ResearchSummary
	if err := json.Unmarshal([]byte(draft), &s); err != nil {
		return nil, fmt.Errorf("draft is not valid JSON: %v", err)
	}

	// The model only authors topic, summary, and findings; everything
	// else is run provenance and comes from the pipeline.
	s.Query = st.query
	s.ToolsUsed = st.toolsUsed
	s.Sources = sourceUnion(s.Findings)
	s.Metadata = a.metadata(st, true)

	if err := s.Validate(a.Config.Agent.MaxValidationRetries); err != nil {
		return nil, err
	}
	return &s, nil
}

// sourceUnion collects the distinct citations across all findings, in
// first-appearance order, keyed by URL.
func sourceUnion(findings []types.Finding) []types.Citation {
	seen := make(map[string]bool)
	var union []types.Citation
	for _, f := range findings {
		for _, c := range f.Citations {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			union = append(union, c)
		}
	}
	return union
}
