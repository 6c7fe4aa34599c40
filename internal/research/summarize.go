// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/provider"
	"github.com/citeseek-dev/citeseek/internal/resilience"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

const (
	// summaryTargetWords bounds the requested summary length.
	summaryTargetWords = 100

	scoreMin = 0
	scoreMax = 10
)

const summarizeSystemPrompt = `You judge whether a passage from a scientific document helps answer a question. Summarize only what is relevant and score how well the passage answers the question.`

// Summarizer turns one (chunk, question) pair into a scored Context via
// a single structured LLM call. Each call is independently retryable;
// a response that fails schema validation is a terminal failure for
// that chunk only.
type Summarizer struct {
	completer provider.Completer
	model     string
	exec      *resilience.Executor
}

// NewSummarizer creates a Summarizer using the given completer and
// bare model name.
func NewSummarizer(completer provider.Completer, model string, exec *resilience.Executor) *Summarizer {
	return &Summarizer{completer: completer, model: model, exec: exec}
}

// summaryResponse is the schema the model must return. Relevance is a
// pointer so a missing field is distinguishable from a zero score.
type summaryResponse struct {
	Summary   string   `json:"summary"`
	Relevance *float64 `json:"relevance"`
}

// Summarize produces the Context for one chunk. Transient provider
// errors are retried by the executor; schema violations are not.
func (s *Summarizer) Summarize(ctx context.Context, chunk corpus.Chunk, citation, question string) (Context, provider.Usage, error) {
	req := provider.CompletionRequest{
		Model:        s.model,
		System:       summarizeSystemPrompt,
		Prompt:       buildSummarizePrompt(chunk, question),
		MaxTokens:    512,
		JSONResponse: true,
	}

	var completion provider.Completion
	err := s.exec.Execute(ctx, "summarize", func(ctx context.Context) error {
		var callErr error
		completion, callErr = s.completer.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return Context{}, provider.Usage{}, cserr.With(err, cserr.FieldChunkID(chunk.ID))
	}

	summary, score, err := parseSummaryResponse(completion.Text)
	if err != nil {
		return Context{}, completion.Usage, cserr.With(err, cserr.FieldChunkID(chunk.ID))
	}

	return Context{
		Chunk:    chunk,
		Summary:  summary,
		Score:    score,
		Citation: citation,
	}, completion.Usage, nil
}

func buildSummarizePrompt(chunk corpus.Chunk, question string) string {
	var b strings.Builder

	b.WriteString("Passage:\n")
	b.WriteString(chunk.Text)
	b.WriteString("\n")

	for _, m := range chunk.Media {
		fmt.Fprintf(&b, "\nAttached %s: %s\n", m.Kind, m.Description)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	fmt.Fprintf(&b,
		`Reply with a JSON object: {"summary": <at most %d words of passage content relevant to the question>, "relevance": <%d-%d, how well the passage answers the question>}`,
		summaryTargetWords, scoreMin, scoreMax)

	return b.String()
}

// parseSummaryResponse validates the model reply against the summary
// schema. Any structural problem is a schema violation: the chunk is
// dropped, never the batch.
func parseSummaryResponse(text string) (string, float64, error) {
	payload := extractJSONObject(text)
	if payload == "" {
		return "", 0, cserr.New(cserr.CodeProviderSchemaViolation, "response contains no JSON object")
	}

	var resp summaryResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return "", 0, cserr.Wrap(err, cserr.CodeProviderSchemaViolation, "unmarshalling summary response")
	}

	if strings.TrimSpace(resp.Summary) == "" {
		return "", 0, cserr.New(cserr.CodeProviderSchemaViolation, "summary field is missing or empty")
	}
	if resp.Relevance == nil {
		return "", 0, cserr.New(cserr.CodeProviderSchemaViolation, "relevance field is missing")
	}
	score := *resp.Relevance
	if score < scoreMin || score > scoreMax {
		return "", 0, cserr.Errorf(cserr.CodeProviderSchemaViolation,
			"relevance %g outside [%d,%d]", score, scoreMin, scoreMax)
	}

	return strings.TrimSpace(resp.Summary), score, nil
}

// extractJSONObject returns the outermost {...} span of text, tolerating
// markdown fences and prose around the object.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
