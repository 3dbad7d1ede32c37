// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent orchestrates one research run: concurrent tool search,
// model-driven filtering of the results, synthesis of a structured
// summary, and schema validation with a bounded retry edge back into
// synthesis. All mutable state is local to a single Run call, so one
// Agent may serve concurrent runs.
package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/internal/model"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Recorder accepts one record per completed run. Recording is
// fire-and-forget: a Recorder failure must never fail the run.
type Recorder interface {
	Record(ctx context.Context, summary *types.ResearchSummary) error
}

// Agent wires the pipeline stages together. Fields are read-only after
// construction.
type Agent struct {
	Model   model.Model
	Tools   []tools.Tool
	Limiter *tools.Limiter
	Config  types.Config
	Out     io.Writer

	// Recorder, when set, receives a record for every completed run,
	// validated or not.
	Recorder Recorder
}

// New builds an agent over the given collaborators. Progress and
// warnings are written to w; pass nil to silence them.
func New(m model.Model, ts []tools.Tool, lim *tools.Limiter, cfg types.Config, w io.Writer) *Agent {
	if w == nil {
		w = io.Discard
	}
	return &Agent{Model: m, Tools: ts, Limiter: lim, Config: cfg, Out: w}
}

// runState carries the working data of one run between stages. It is
// created at the start of Run and discarded at the end; nothing in it
// outlives the run.
type runState struct {
	query      string
	raw        []types.RawResult
	candidates []types.RawResult
	toolsUsed  []string
	retryCount int
	startTime  time.Time
}

// Run executes the full pipeline for one query and returns its summary.
//
// Schema failures are recoverable: an invalid draft is re-synthesized
// with the validator's feedback, up to MaxValidationRetries times, after
// which the run ends with a terminal failure record (ParseSuccess false)
// and a nil error. Model and context failures are fatal and returned as
// errors with no summary.
func (a *Agent) Run(ctx context.Context, query string) (*types.ResearchSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	timeout := a.Config.Agent.RunTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st := &runState{query: query, startTime: time.Now()}

	fmt.Fprintf(a.Out, "searching %d tools for %q\n", len(a.Tools), query)
	out := tools.RunAll(ctx, query, a.Tools, a.Limiter, a.Config.Tools, a.Out)
	st.raw = out.Results
	st.toolsUsed = out.ToolsUsed
	fmt.Fprintf(a.Out, "found %d results from %d tools\n", len(st.raw), len(st.toolsUsed))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run aborted during search: %w", err)
	}

	candidates, err := a.filter(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("filtering results: %w", err)
	}
	st.candidates = candidates
	if len(st.candidates) == 0 {
		fmt.Fprintf(a.Out, "no usable sources, ending run\n")
		return a.record(ctx, a.failureSummary(st, fmt.Errorf("no sources available for synthesis"))), nil
	}
	fmt.Fprintf(a.Out, "kept %d of %d results\n", len(st.candidates), len(st.raw))

	maxRetries := a.Config.Agent.MaxValidationRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var feedback string
	for {
		fmt.Fprintf(a.Out, "synthesizing (attempt %d of %d)\n", st.retryCount+1, maxRetries+1)
		draft, err := a.synthesize(ctx, st, feedback)
		if err != nil {
			return nil, fmt.Errorf("synthesis: %w", err)
		}

		summary, verr := a.validate(draft, st)
		if verr == nil {
			fmt.Fprintf(a.Out, "validated summary with %d findings\n", len(summary.Findings))
			return a.record(ctx, summary), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted during validation: %w", err)
		}
		if st.retryCount >= maxRetries {
			fmt.Fprintf(a.Out, "validation failed after %d retries: %v\n", st.retryCount, verr)
			return a.record(ctx, a.failureSummary(st, verr)), nil
		}
		st.retryCount++
		feedback = verr.Error()
		fmt.Fprintf(a.Out, "draft rejected, retrying: %v\n", verr)
	}
}

// record passes a completed run to the Recorder, if one is configured.
// A recording failure is reported as a warning only.
func (a *Agent) record(ctx context.Context, summary *types.ResearchSummary) *types.ResearchSummary {
	if a.Recorder != nil {
		if err := a.Recorder.Record(ctx, summary); err != nil {
			fmt.Fprintf(a.Out, "warning: recording run failed: %v\n", err)
		}
	}
	return summary
}

// failureSummary builds the terminal record for a run that could not
// produce a valid summary. ParseSuccess is false and the cause is
// carried in the summary text.
func (a *Agent) failureSummary(st *runState, cause error) *types.ResearchSummary {
	return &types.ResearchSummary{
		Topic:     "Research failed",
		Query:     st.query,
		Summary:   fmt.Sprintf("Research could not be completed: %v", cause),
		ToolsUsed: st.toolsUsed,
		Metadata:  a.metadata(st, false),
	}
}

// metadata stamps run provenance from the current state.
func (a *Agent) metadata(st *runState, parsed bool) types.QueryMetadata {
	return types.QueryMetadata{
		QueryTimeSeconds: time.Since(st.startTime).Seconds(),
		SourcesFound:     len(st.raw),
		SourcesUsed:      len(st.candidates),
		ToolsUsed:        st.toolsUsed,
		Timestamp:        st.startTime.UTC().Format(time.RFC3339),
		ParseSuccess:     parsed,
		RetryCount:       st.retryCount,
	}
}
