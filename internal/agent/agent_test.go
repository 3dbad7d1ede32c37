package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/research-agent/internal/model"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

// scriptedModel replays canned replies in call order.
type scriptedModel struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (m *scriptedModel) Invoke(_ context.Context, _, prompt string) (string, error) {
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", fmt.Errorf("unexpected model call %d", i)
}

// slowModel blocks until the context expires.
type slowModel struct{}

func (slowModel) Invoke(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type stubTool struct {
	name    string
	results []types.RawResult
	err     error
}

func (t *stubTool) Name() string { return t.name }

func (t *stubTool) Search(context.Context, string) ([]types.RawResult, error) {
	return t.results, t.err
}

func testConfig() types.Config {
	var cfg types.Config
	cfg.ApplyDefaults()
	cfg.Tools.MaxRetries = 1
	cfg.Tools.RetryBaseDelay = time.Millisecond
	cfg.Tools.RatePerSecond = 1000
	return cfg
}

func newTestAgent(m model.Model, ts []tools.Tool) *Agent {
	return New(m, ts, tools.NewLimiter(1000), testConfig(), io.Discard)
}

func rawResults(n int) []types.RawResult {
	var rs []types.RawResult
	for i := 0; i < n; i++ {
		rs = append(rs, types.RawResult{
			Title:   fmt.Sprintf("Result %d", i+1),
			URL:     fmt.Sprintf("http://example.org/%d", i+1),
			Snippet: "snippet",
			Source:  "wikipedia",
		})
	}
	return rs
}

const validDraft = `{
  "topic": "CRISPR",
  "summary": "CRISPR-based genome editing enables precise, programmable modification of DNA in living cells.",
  "findings": [
    {
      "claim": "CRISPR enables precise genome edits",
      "evidence": "Sources describe RNA-guided double-strand breaks at targeted loci.",
      "confidence": 0.9,
      "citations": [
        {"author": "Unknown", "title": "CRISPR", "url": "https://en.wikipedia.org/wiki/CRISPR", "year": null, "source_type": "wiki"}
      ]
    }
  ]
}`

// --- Run ---

func TestRunHappyPath(t *testing.T) {
	m := &scriptedModel{replies: []string{"[1, 2]", validDraft}}
	tool := &stubTool{name: "wikipedia", results: rawResults(2)}

	summary, err := newTestAgent(m, []tools.Tool{tool}).Run(context.Background(), "what is CRISPR")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Topic != "CRISPR" {
		t.Errorf("Topic = %q", summary.Topic)
	}
	if summary.Query != "what is CRISPR" {
		t.Errorf("Query = %q, want the literal input", summary.Query)
	}
	if len(summary.Findings) != 1 {
		t.Errorf("len(Findings) = %d, want 1", len(summary.Findings))
	}
	if len(summary.Sources) != 1 {
		t.Errorf("len(Sources) = %d, want 1", len(summary.Sources))
	}
	if !summary.Metadata.ParseSuccess {
		t.Error("Metadata.ParseSuccess = false, want true")
	}
	if summary.Metadata.RetryCount != 0 {
		t.Errorf("Metadata.RetryCount = %d, want 0", summary.Metadata.RetryCount)
	}
	if summary.Metadata.SourcesFound != 2 || summary.Metadata.SourcesUsed != 2 {
		t.Errorf("SourcesFound/Used = %d/%d, want 2/2",
			summary.Metadata.SourcesFound, summary.Metadata.SourcesUsed)
	}
	if m.calls != 2 {
		t.Errorf("model calls = %d, want 2 (filter + synthesis)", m.calls)
	}
}

func TestRunRetriesInvalidDraftThenSucceeds(t *testing.T) {
	// First draft carries an out-of-range confidence; the corrected
	// second draft passes.
	invalid := strings.Replace(validDraft, "0.9", "1.5", 1)
	m := &scriptedModel{replies: []string{"[1]", invalid, validDraft}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}

	summary, err := newTestAgent(m, []tools.Tool{tool}).Run(context.Background(), "what is CRISPR")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.Metadata.ParseSuccess {
		t.Error("ParseSuccess = false, want true")
	}
	if summary.Metadata.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", summary.Metadata.RetryCount)
	}
	if m.calls != 3 {
		t.Fatalf("model calls = %d, want 3 (filter + 2 synthesis)", m.calls)
	}
	// The retry prompt carries the validator's rejection.
	if !strings.Contains(m.prompts[2], "rejected") || !strings.Contains(m.prompts[2], "confidence") {
		t.Errorf("retry prompt missing validation feedback:\n%s", m.prompts[2])
	}
}

func TestRunFailsAfterMaxRetries(t *testing.T) {
	m := &scriptedModel{replies: []string{"[1]", "not json", "still not json", "never json"}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}

	summary, err := newTestAgent(m, []tools.Tool{tool}).Run(context.Background(), "hopeless")
	if err != nil {
		t.Fatalf("Run: %v (schema exhaustion should not be an error)", err)
	}

	if summary.Metadata.ParseSuccess {
		t.Error("ParseSuccess = true, want false")
	}
	if summary.Metadata.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", summary.Metadata.RetryCount)
	}
	// 1 filter + 3 synthesis attempts (initial + 2 retries), then stop.
	if m.calls != 4 {
		t.Errorf("model calls = %d, want 4", m.calls)
	}
	if summary.Query != "hopeless" {
		t.Errorf("Query = %q", summary.Query)
	}
}

func TestRunModelErrorAborts(t *testing.T) {
	m := &scriptedModel{errs: []error{&model.ModelError{Err: errors.New("401 unauthorized")}}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}

	_, err := newTestAgent(m, []tools.Tool{tool}).Run(context.Background(), "q")
	if err == nil {
		t.Fatal("Run should fail on a model error")
	}
	var me *model.ModelError
	if !errors.As(err, &me) {
		t.Errorf("err = %v, want wrapped *model.ModelError", err)
	}
	if m.calls != 1 {
		t.Errorf("model calls = %d, want 1 (no retry on model errors)", m.calls)
	}
}

func TestRunToleratesPartialToolFailure(t *testing.T) {
	working := &stubTool{name: "working", results: rawResults(1)}
	ts := []tools.Tool{
		&stubTool{name: "a", err: errors.New("down")},
		&stubTool{name: "b", err: errors.New("down")},
		&stubTool{name: "c", err: errors.New("down")},
		working,
	}
	m := &scriptedModel{replies: []string{"[1]", validDraft}}

	summary, err := newTestAgent(m, ts).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Metadata.ParseSuccess {
		t.Error("ParseSuccess = false, want true")
	}
	if len(summary.ToolsUsed) != 1 || summary.ToolsUsed[0] != "working" {
		t.Errorf("ToolsUsed = %v, want [working]", summary.ToolsUsed)
	}
}

func TestRunNoSourcesEndsWithoutModelCalls(t *testing.T) {
	m := &scriptedModel{}
	tool := &stubTool{name: "empty"}

	summary, err := newTestAgent(m, []tools.Tool{tool}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Metadata.ParseSuccess {
		t.Error("ParseSuccess = true, want false")
	}
	if m.calls != 0 {
		t.Errorf("model calls = %d, want 0", m.calls)
	}
}

func TestRunEmptyQuery(t *testing.T) {
	_, err := newTestAgent(&scriptedModel{}, nil).Run(context.Background(), "   ")
	if err == nil {
		t.Fatal("Run should reject an empty query")
	}
}

func TestRunTimeoutAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Agent.RunTimeout = 10 * time.Millisecond
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}
	a := New(slowModel{}, []tools.Tool{tool}, tools.NewLimiter(1000), cfg, io.Discard)

	_, err := a.Run(context.Background(), "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

type stubRecorder struct {
	records []*types.ResearchSummary
	err     error
}

func (r *stubRecorder) Record(_ context.Context, s *types.ResearchSummary) error {
	r.records = append(r.records, s)
	return r.err
}

func TestRunRecordsCompletedRuns(t *testing.T) {
	m := &scriptedModel{replies: []string{"[1]", validDraft}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}
	rec := &stubRecorder{}

	a := newTestAgent(m, []tools.Tool{tool})
	a.Recorder = rec

	if _, err := a.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	if !rec.records[0].Metadata.ParseSuccess {
		t.Error("recorded run should be the validated summary")
	}
}

func TestRunRecorderFailureDoesNotFailRun(t *testing.T) {
	m := &scriptedModel{replies: []string{"[1]", validDraft}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}
	rec := &stubRecorder{err: fmt.Errorf("disk full")}

	a := newTestAgent(m, []tools.Tool{tool})
	a.Recorder = rec

	summary, err := a.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Metadata.ParseSuccess {
		t.Error("run should still succeed when recording fails")
	}
}

func TestRunRecordsTerminalFailures(t *testing.T) {
	m := &scriptedModel{replies: []string{"[1]", "no", "no", "no"}}
	tool := &stubTool{name: "wikipedia", results: rawResults(1)}
	rec := &stubRecorder{}

	a := newTestAgent(m, []tools.Tool{tool})
	a.Recorder = rec

	if _, err := a.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	if rec.records[0].Metadata.ParseSuccess {
		t.Error("recorded run should be the failure record")
	}
}

// --- filter ---

func TestFilterSelectsIndices(t *testing.T) {
	m := &scriptedModel{replies: []string{"```json\n[3, 1]\n```"}}
	a := newTestAgent(m, nil)
	st := &runState{query: "q", raw: rawResults(4)}

	kept, err := a.filter(context.Background(), st)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("len(kept) = %d, want 2", len(kept))
	}
	if kept[0].Title != "Result 3" || kept[1].Title != "Result 1" {
		t.Errorf("kept = %v, want results 3 then 1", []string{kept[0].Title, kept[1].Title})
	}
}

func TestFilterKeepAllFallback(t *testing.T) {
	m := &scriptedModel{replies: []string{"sorry, I cannot rank these results"}}
	a := newTestAgent(m, nil)
	st := &runState{query: "q", raw: rawResults(7)}

	kept, err := a.filter(context.Background(), st)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	// Fallback keeps everything, bounded by MaxCandidates (5).
	if len(kept) != 5 {
		t.Errorf("len(kept) = %d, want 5", len(kept))
	}
}

func TestFilterIgnoresOutOfRangeIndices(t *testing.T) {
	m := &scriptedModel{replies: []string{"[0, 9, 2, 2]"}}
	a := newTestAgent(m, nil)
	st := &runState{query: "q", raw: rawResults(3)}

	kept, err := a.filter(context.Background(), st)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(kept) != 1 || kept[0].Title != "Result 2" {
		t.Errorf("kept = %+v, want only result 2", kept)
	}
}

func TestFilterEmptyInputShortCircuits(t *testing.T) {
	m := &scriptedModel{}
	a := newTestAgent(m, nil)
	st := &runState{query: "q"}

	kept, err := a.filter(context.Background(), st)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(kept) != 0 {
		t.Errorf("kept = %v, want none", kept)
	}
	if m.calls != 0 {
		t.Errorf("model calls = %d, want 0", m.calls)
	}
}

// --- validate ---

func TestValidateStampsProvenance(t *testing.T) {
	a := newTestAgent(&scriptedModel{}, nil)
	st := &runState{
		query:      "what is CRISPR",
		raw:        rawResults(4),
		candidates: rawResults(2),
		toolsUsed:  []string{"arxiv", "wikipedia"},
		retryCount: 1,
		startTime:  time.Now().Add(-2 * time.Second),
	}

	summary, err := a.validate(validDraft, st)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	md := summary.Metadata
	if md.SourcesFound != 4 || md.SourcesUsed != 2 {
		t.Errorf("SourcesFound/Used = %d/%d, want 4/2", md.SourcesFound, md.SourcesUsed)
	}
	if md.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", md.RetryCount)
	}
	if !md.ParseSuccess {
		t.Error("ParseSuccess = false, want true")
	}
	if md.QueryTimeSeconds < 1.9 {
		t.Errorf("QueryTimeSeconds = %g, want ~2", md.QueryTimeSeconds)
	}
	if summary.Query != "what is CRISPR" {
		t.Errorf("Query = %q, want stamped from run state", summary.Query)
	}
	if len(summary.Sources) != 1 {
		t.Errorf("len(Sources) = %d, want deduplicated union of 1", len(summary.Sources))
	}
}

func TestValidateRejectsShortSummary(t *testing.T) {
	a := newTestAgent(&scriptedModel{}, nil)
	st := &runState{query: "q", startTime: time.Now()}
	draft := strings.Replace(validDraft,
		"CRISPR-based genome editing enables precise, programmable modification of DNA in living cells.",
		"Too short.", 1)

	_, err := a.validate(draft, st)
	if err == nil || !strings.Contains(err.Error(), "at least 50") {
		t.Errorf("err = %v, want summary length violation", err)
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	a := newTestAgent(&scriptedModel{}, nil)
	st := &runState{query: "q", startTime: time.Now()}

	_, err := a.validate("{ this is not json", st)
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Errorf("err = %v, want JSON parse failure", err)
	}
}

func TestSourceUnionDeduplicates(t *testing.T) {
	c1 := types.Citation{Title: "A", URL: "http://a", SourceType: types.SourceWeb}
	c2 := types.Citation{Title: "B", URL: "http://b", SourceType: types.SourceWiki}
	findings := []types.Finding{
		{Claim: "x", Evidence: "e", Citations: []types.Citation{c1, c2}},
		{Claim: "y", Evidence: "e", Citations: []types.Citation{c2, c1}},
	}

	union := sourceUnion(findings)
	if len(union) != 2 {
		t.Fatalf("len(union) = %d, want 2", len(union))
	}
	if union[0].URL != "http://a" || union[1].URL != "http://b" {
		t.Errorf("union order = %v, want first-appearance order", union)
	}
}

// --- helpers ---

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.input); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIndexList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
		ok    bool
	}{
		{"bare array", "[1, 2, 3]", []int{1, 2, 3}, true},
		{"with prose", "The best results are: [2, 4]", []int{2, 4}, true},
		{"fenced", "```json\n[1]\n```", []int{1}, true},
		{"no array", "I think result one is best", nil, false},
		{"not numbers", `["a", "b"]`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseIndexList(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
