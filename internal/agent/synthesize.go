// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
)

const synthesisSystem = "You are a research assistant. You produce structured research summaries " +
	"as JSON matching the schema you are given exactly. Reply with only the JSON object."

// draftSchema is the shape the synthesis prompt asks the model to fill.
// Query, tools, sources, and metadata are stamped by the validator, not
// requested from the model.
const draftSchema = `{
  "topic": "short topic name",
  "summary": "overview paragraph, at least 50 characters",
  "findings": [
    {
      "claim": "key finding",
      "evidence": "supporting context from the sources",
      "confidence": 0.8,
      "citations": [
        {"author": "name or Unknown", "title": "source title", "url": "https://...", "year": 2024, "source_type": "paper"}
      ]
    }
  ]
}`

var synthesisTemplate = template.Must(template.New("synthesis").Parse(`Research query: {{.Query}}

Sources ({{.ToolList}}):
{{.Sources}}
Produce a research summary as a single JSON object with this shape:

{{.Schema}}

Rules:
- cite only the sources listed above
- confidence is between 0.0 and 1.0
- source_type is one of paper, article, wiki, web
- year is an integer or null
{{if .Feedback}}
Your previous draft was rejected by the validator:
{{.Feedback}}

Fix these problems and produce a corrected JSON object.
{{end}}`))

type synthesisInput struct {
	Query    string
	ToolList string
	Sources  string
	Schema   string
	Feedback string
}

// synthesize makes one model call over the filtered candidates and
// returns the raw draft text, fences stripped. Feedback, when present,
// is the validator's rejection of the previous attempt.
func (a *Agent) synthesize(ctx context.Context, st *runState, feedback string) (string, error) {
	var src strings.Builder
	for i, r := range st.candidates {
		fmt.Fprintf(&src, "%d. [%s] %s\n   %s\n   %s\n", i+1, r.Source, r.Title, r.URL, r.Snippet)
	}

	var buf bytes.Buffer
	err := synthesisTemplate.Execute(&buf, synthesisInput{
		Query:    st.query,
		ToolList: strings.Join(st.toolsUsed, ", "),
		Sources:  src.String(),
		Schema:   draftSchema,
		Feedback: feedback,
	})
	if err != nil {
		return "", fmt.Errorf("building synthesis prompt: %w", err)
	}

	reply, err := a.Model.Invoke(ctx, synthesisSystem, buf.String())
	if err != nil {
		return "", err
	}
	return stripFences(reply), nil
}

// stripFences removes a markdown code fence wrapping, which models add
// around JSON replies despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
