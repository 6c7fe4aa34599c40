// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/citeseek-dev/citeseek/internal/index"
	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Tool names exposed to an orchestrating agent.
const (
	ToolPaperSearch    = "paper_search"
	ToolGatherEvidence = "gather_evidence"
	ToolGenAnswer      = "gen_answer"
)

const searchDefaultLimit = 10

// Toolbox binds the pipeline operations to a tool-call surface: keyword
// search over the corpus, evidence gathering, and answer synthesis.
// paper_search is safe to call concurrently; gather_evidence and
// gen_answer inherit the per-session mutual exclusion of the pipeline.
type Toolbox struct {
	searcher    index.TextSearcher
	gatherer    *Gatherer
	synthesizer *Synthesizer
	sessions    *Manager
}

// NewToolbox creates a Toolbox over the given collaborators.
func NewToolbox(searcher index.TextSearcher, gatherer *Gatherer, synthesizer *Synthesizer, sessions *Manager) *Toolbox {
	return &Toolbox{
		searcher:    searcher,
		gatherer:    gatherer,
		synthesizer: synthesizer,
		sessions:    sessions,
	}
}

// Definitions lists the tool schemas in a stable order.
func (t *Toolbox) Definitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        ToolPaperSearch,
			Description: "Keyword search over indexed documents, optionally bounded by publication year.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":    map[string]any{"type": "string", "description": "Keyword query."},
					"min_year": map[string]any{"type": "integer", "description": "Earliest publication year, inclusive."},
					"max_year": map[string]any{"type": "integer", "description": "Latest publication year, inclusive."},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolGatherEvidence,
			Description: "Retrieve relevant chunks for the session's question and summarize them into scored evidence.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": map[string]any{"type": "string", "description": "Session to gather into."},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        ToolGenAnswer,
			Description: "Synthesize a cited answer from the session's gathered evidence.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": map[string]any{"type": "string", "description": "Session to answer."},
				},
				"required": []string{"session_id"},
			},
		},
	}
}

type paperSearchArgs struct {
	Query   string `json:"query"`
	MinYear int    `json:"min_year"`
	MaxYear int    `json:"max_year"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// Invoke dispatches one tool call by name. The returned string is the
// tool result to hand back to the model.
func (t *Toolbox) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch name {
	case ToolPaperSearch:
		var a paperSearchArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return "", cserr.Wrap(err, cserr.CodeToolInvalidInput, "decoding paper_search arguments")
		}
		return t.paperSearch(ctx, a)

	case ToolGatherEvidence:
		var a sessionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return "", cserr.Wrap(err, cserr.CodeToolInvalidInput, "decoding gather_evidence arguments")
		}
		return t.gatherEvidence(ctx, a.SessionID)

	case ToolGenAnswer:
		var a sessionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return "", cserr.Wrap(err, cserr.CodeToolInvalidInput, "decoding gen_answer arguments")
		}
		return t.genAnswer(ctx, a.SessionID)

	default:
		return "", cserr.Errorf(cserr.CodeToolNotFound, "unknown tool %q", name)
	}
}

func (t *Toolbox) paperSearch(ctx context.Context, a paperSearchArgs) (string, error) {
	if strings.TrimSpace(a.Query) == "" {
		return "", cserr.New(cserr.CodeToolInvalidInput, "paper_search requires a query")
	}

	hits, err := t.searcher.SearchText(ctx, a.Query, index.SearchOpts{
		Limit:   searchDefaultLimit,
		MinYear: a.MinYear,
		MaxYear: a.MaxYear,
	})
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "No matching documents.", nil
	}

	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s (%d): %s\n", h.Title, h.Year, h.Snippet)
	}
	return b.String(), nil
}

func (t *Toolbox) gatherEvidence(ctx context.Context, sessionID string) (string, error) {
	session, err := t.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}

	result, err := t.gatherer.Gather(ctx, session, GatherOptions{})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Added %d pieces of evidence (%d retrieved, %d filtered, %d failed). Session holds %d.",
		result.Added, result.Retrieved, result.Filtered, result.Failed, session.ContextCount()), nil
}

func (t *Toolbox) genAnswer(ctx context.Context, sessionID string) (string, error) {
	session, err := t.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}

	answer, err := t.synthesizer.Synthesize(ctx, session, DefaultMaxSources)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Bibliography) > 0 {
		b.WriteString("\n\nReferences:\n")
		for _, entry := range answer.Bibliography {
			b.WriteString(entry)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
