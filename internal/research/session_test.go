// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

func evidenceContext(chunkID string, score float64) Context {
	return Context{
		Chunk:    corpus.Chunk{ID: chunkID, DocID: "doc-" + chunkID, Text: "text " + chunkID},
		Summary:  "sum-" + chunkID,
		Score:    score,
		Citation: "cite-" + chunkID,
	}
}

func TestMergeDeduplicatesByChunkID(t *testing.T) {
	s := NewSession("what is attention?")

	added := s.merge([]Context{evidenceContext("a", 8), evidenceContext("b", 6)})
	require.Equal(t, 2, added)
	require.Equal(t, 2, s.ContextCount())

	// Re-merging the same chunks is a no-op.
	added = s.merge([]Context{evidenceContext("a", 8), evidenceContext("c", 4)})
	require.Equal(t, 1, added)
	require.Equal(t, 3, s.ContextCount())

	ids := make([]string, 0, 3)
	for _, c := range s.Contexts() {
		ids = append(ids, c.Chunk.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMergeAfterAnswerMarksStale(t *testing.T) {
	s := NewSession("q")
	s.merge([]Context{evidenceContext("a", 8)})
	s.setAnswer(Answer{Text: "first answer"})

	answer, ok := s.Answer()
	require.True(t, ok)
	assert.False(t, answer.Stale)

	s.merge([]Context{evidenceContext("b", 7)})

	answer, ok = s.Answer()
	require.True(t, ok)
	assert.True(t, answer.Stale)
	assert.Equal(t, "first answer", answer.Text)

	// A fresh synthesis replaces the stale answer.
	s.setAnswer(Answer{Text: "second answer"})
	answer, _ = s.Answer()
	assert.False(t, answer.Stale)
	assert.Equal(t, "second answer", answer.Text)
}

func TestMergeOfDuplicatesOnlyDoesNotStaleAnswer(t *testing.T) {
	s := NewSession("q")
	s.merge([]Context{evidenceContext("a", 8)})
	s.setAnswer(Answer{Text: "answer"})

	s.merge([]Context{evidenceContext("a", 8)})

	answer, ok := s.Answer()
	require.True(t, ok)
	assert.False(t, answer.Stale)
}

func TestStateTransitions(t *testing.T) {
	s := NewSession("q")
	assert.Equal(t, StateEmpty, s.State())

	s.merge([]Context{evidenceContext("a", 8)})
	assert.Equal(t, StateGathering, s.State())

	s.setAnswer(Answer{Text: "done"})
	assert.Equal(t, StateAnswered, s.State())
}

func TestRecordUsageAccumulates(t *testing.T) {
	s := NewSession("q")

	s.recordUsage(provider.Usage{InputTokens: 100, OutputTokens: 20}, 0.004)
	s.recordUsage(provider.Usage{InputTokens: 50, OutputTokens: 10}, 0.002)

	usage := s.Usage()
	assert.Equal(t, 150, usage.InputTokens)
	assert.Equal(t, 30, usage.OutputTokens)
	assert.Equal(t, 2, usage.Calls)
	assert.InDelta(t, 0.006, usage.CostUSD, 1e-9)
}

func TestBeginOpRejectsConcurrentOperation(t *testing.T) {
	s := NewSession("q")

	require.NoError(t, s.beginOp("gather_evidence"))

	err := s.beginOp("gen_answer")
	require.Error(t, err)
	assert.True(t, cserr.IsBusy(err))
	assert.Equal(t, s.ID, cserr.FieldsOf(err)["session_id"])

	s.endOp()
	require.NoError(t, s.beginOp("gen_answer"))
	s.endOp()
}

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager()

	s := m.Create("what is attention?")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "what is attention?", s.Question)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	require.Error(t, err)
	assert.True(t, cserr.IsNotFound(err))

	assert.Len(t, m.List(), 1)
}
