// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek-dev/citeseek/internal/provider"
	"github.com/citeseek-dev/citeseek/internal/research"
	"github.com/citeseek-dev/citeseek/internal/resilience"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// newToolboxEnv extends a gather environment with a synthesizer whose
// completer answers summarize and synthesis calls from the same fake.
func newToolboxEnv(t *testing.T, scores []float64, answerText string) (*gatherEnv, *research.Toolbox) {
	t.Helper()

	env := newGatherEnv(t, scores, nil)

	// Summarize requests ask for JSON; the answer call does not.
	inner := env.completer.complete
	env.completer.complete = func(req provider.CompletionRequest) (provider.Completion, error) {
		if !req.JSONResponse {
			return provider.Completion{
				Text:  answerText,
				Usage: provider.Usage{InputTokens: 20, OutputTokens: 8},
			}, nil
		}
		return inner(req)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := resilience.NewExecutor(resilience.Config{MaxAttempts: 1, BreakerDisabled: true}, logger)
	synthesizer := research.NewSynthesizer(research.SynthesizerConfig{
		Completer: env.completer,
		Model:     "test-model",
		Executor:  exec,
		Logger:    logger,
	})

	toolbox := research.NewToolbox(env.mem, env.gatherer, synthesizer, env.sessions)
	return env, toolbox
}

func TestToolboxDefinitions(t *testing.T) {
	_, toolbox := newToolboxEnv(t, nil, "")

	defs := toolbox.Definitions()
	require.Len(t, defs, 3)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.Equal(t, "object", d.InputSchema["type"])
	}
	assert.Equal(t, []string{"paper_search", "gather_evidence", "gen_answer"}, names)
}

func TestPaperSearchTool(t *testing.T) {
	_, toolbox := newToolboxEnv(t, []float64{8, 7}, "")

	out, err := toolbox.Invoke(context.Background(), research.ToolPaperSearch,
		json.RawMessage(`{"query": "chunk-1"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Paper 1")
	assert.Contains(t, out, "2017")
}

func TestPaperSearchToolYearFilter(t *testing.T) {
	_, toolbox := newToolboxEnv(t, []float64{8}, "")

	out, err := toolbox.Invoke(context.Background(), research.ToolPaperSearch,
		json.RawMessage(`{"query": "chunk-0", "min_year": 2020}`))
	require.NoError(t, err)
	assert.Equal(t, "No matching documents.", out)
}

func TestPaperSearchToolRequiresQuery(t *testing.T) {
	_, toolbox := newToolboxEnv(t, nil, "")

	_, err := toolbox.Invoke(context.Background(), research.ToolPaperSearch,
		json.RawMessage(`{"query": "  "}`))
	require.Error(t, err)
	assert.True(t, cserr.IsInvalidInput(err))
}

func TestToolboxUnknownTool(t *testing.T) {
	_, toolbox := newToolboxEnv(t, nil, "")

	_, err := toolbox.Invoke(context.Background(), "delete_papers", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, cserr.IsNotFound(err))
}

func TestToolboxMalformedArguments(t *testing.T) {
	_, toolbox := newToolboxEnv(t, nil, "")

	_, err := toolbox.Invoke(context.Background(), research.ToolGatherEvidence,
		json.RawMessage(`{"session_id": 7}`))
	require.Error(t, err)
	assert.True(t, cserr.IsInvalidInput(err))
}

func TestToolboxUnknownSession(t *testing.T) {
	_, toolbox := newToolboxEnv(t, nil, "")

	_, err := toolbox.Invoke(context.Background(), research.ToolGenAnswer,
		json.RawMessage(`{"session_id": "missing"}`))
	require.Error(t, err)
	assert.True(t, cserr.IsNotFound(err))
}

func TestToolboxGatherThenAnswer(t *testing.T) {
	env, toolbox := newToolboxEnv(t, []float64{8, 7}, "Attention is all you need [1].")
	session := env.sessions.Create("what is attention?")
	args := json.RawMessage(fmt.Sprintf(`{"session_id": %q}`, session.ID))

	out, err := toolbox.Invoke(context.Background(), research.ToolGatherEvidence, args)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 pieces of evidence")
	assert.Equal(t, 2, session.ContextCount())

	out, err = toolbox.Invoke(context.Background(), research.ToolGenAnswer, args)
	require.NoError(t, err)
	assert.Contains(t, out, "Attention is all you need [1].")
	assert.Contains(t, out, "References:")
	assert.Contains(t, out, "[1]")

	assert.Equal(t, research.StateAnswered, session.State())
}
