// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package index_test

import (
	"context"
	"testing"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/index"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T, chunks ...corpus.Chunk) *index.Memory {
	t.Helper()
	idx := index.NewMemory()
	require.NoError(t, idx.Add(context.Background(), chunks))
	return idx
}

func chunk(id string, emb ...float32) corpus.Chunk {
	return corpus.Chunk{ID: id, DocID: "doc-" + id, Text: "text " + id, Embedding: emb}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, index.Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, index.Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, index.Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, index.Cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, index.Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestSimilarOrdersByDescendingSimilarity(t *testing.T) {
	idx := seedIndex(t,
		chunk("a", 0, 1),
		chunk("b", 1, 0),
		chunk("c", 0.9, 0.1),
	)

	results, err := idx.Similar(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].Chunk.ID)
	assert.Equal(t, "c", results[1].Chunk.ID)
	assert.Equal(t, "a", results[2].Chunk.ID)
}

func TestRetrieveEmptyIndexReturnsEmpty(t *testing.T) {
	idx := index.NewMemory()

	results, err := idx.Retrieve(context.Background(), []float32{1, 0}, 5, 0.75)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveNoDuplicateSelection(t *testing.T) {
	idx := seedIndex(t,
		chunk("a", 1, 0),
		chunk("b", 0.9, 0.1),
		chunk("c", 0.8, 0.2),
		chunk("d", 0, 1),
		chunk("e", 0.5, 0.5),
	)

	results, err := idx.Retrieve(context.Background(), []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.Chunk.ID], "chunk %s selected twice", r.Chunk.ID)
		seen[r.Chunk.ID] = true
	}
}

// With lambda=1 the diversity penalty vanishes and MMR must reduce to
// pure similarity ranking.
func TestRetrieveLambdaOneIsPureRanking(t *testing.T) {
	ctx := context.Background()
	idx := seedIndex(t,
		chunk("a", 0.7, 0.3),
		chunk("b", 1, 0),
		chunk("c", 0.95, 0.05),
		chunk("d", 0.2, 0.8),
	)

	query := []float32{1, 0}

	mmr, err := idx.Retrieve(ctx, query, 4, 1.0)
	require.NoError(t, err)
	knn, err := idx.Similar(ctx, query, 4)
	require.NoError(t, err)

	require.Len(t, mmr, len(knn))
	for i := range knn {
		assert.Equal(t, knn[i].Chunk.ID, mmr[i].Chunk.ID, "position %d", i)
	}
}

// With a diversity weight, a near-duplicate of the first selection must
// lose to a less similar but novel candidate.
func TestRetrievePenalizesRedundancy(t *testing.T) {
	idx := seedIndex(t,
		chunk("first", 1, 0, 0),
		chunk("near-dup", 0.99, 0.01, 0),
		chunk("novel", 0.05, 0, 1),
	)

	results, err := idx.Retrieve(context.Background(), []float32{1, 0, 0}, 2, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Chunk.ID)
	assert.Equal(t, "novel", results[1].Chunk.ID)
}

func TestRetrieveFewerThanKIsNotAnError(t *testing.T) {
	idx := seedIndex(t, chunk("only", 1, 0))

	results, err := idx.Retrieve(context.Background(), []float32{1, 0}, 10, 0.75)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieveTiesBreakByInsertionOrder(t *testing.T) {
	// Identical embeddings: identical similarity and identical penalty.
	idx := seedIndex(t,
		chunk("second", 1, 0),
		chunk("third", 1, 0),
	)

	results, err := idx.Retrieve(context.Background(), []float32{1, 0}, 2, 0.75)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "second", results[0].Chunk.ID)
	assert.Equal(t, "third", results[1].Chunk.ID)
}

func TestRetrieveDeterministic(t *testing.T) {
	idx := seedIndex(t,
		chunk("a", 0.9, 0.1),
		chunk("b", 0.8, 0.3),
		chunk("c", 0.1, 0.9),
		chunk("d", 0.5, 0.5),
	)

	query := []float32{1, 0}
	first, err := idx.Retrieve(context.Background(), query, 3, 0.6)
	require.NoError(t, err)

	for range 5 {
		again, err := idx.Retrieve(context.Background(), query, 3, 0.6)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Chunk.ID, again[i].Chunk.ID)
		}
	}
}

func TestAddRejectsInvalidChunks(t *testing.T) {
	idx := index.NewMemory()

	err := idx.Add(context.Background(), []corpus.Chunk{{Text: "no id", Embedding: []float32{1}}})
	require.Error(t, err)
	assert.True(t, cserr.IsInvalidInput(err))

	err = idx.Add(context.Background(), []corpus.Chunk{{ID: "x", Text: "no embedding"}})
	require.Error(t, err)
	assert.True(t, cserr.IsInvalidInput(err))
}

func TestAddUpsertKeepsInsertionPosition(t *testing.T) {
	ctx := context.Background()
	idx := seedIndex(t,
		chunk("a", 1, 0),
		chunk("b", 0, 1),
	)

	require.NoError(t, idx.Add(ctx, []corpus.Chunk{chunk("a", 0.5, 0.5)}))

	results, err := idx.Similar(ctx, []float32{1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
}

func TestSearchTextFiltersByYear(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()
	idx.AddDocument(corpus.Document{ID: "doc-old", Title: "Old Result", Year: 1999})
	idx.AddDocument(corpus.Document{ID: "doc-new", Title: "New Result", Year: 2021})
	require.NoError(t, idx.Add(ctx, []corpus.Chunk{
		{ID: "c1", DocID: "doc-old", Text: "transformer architectures in the wild", Embedding: []float32{1}},
		{ID: "c2", DocID: "doc-new", Text: "transformer scaling laws revisited", Embedding: []float32{1}},
	}))

	hits, err := idx.SearchText(ctx, "transformer", index.SearchOpts{MinYear: 2010})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)
	assert.Equal(t, "New Result", hits[0].Title)
}

func TestDocumentLookup(t *testing.T) {
	idx := index.NewMemory()
	idx.AddDocument(corpus.Document{ID: "doc-1", Title: "Known"})

	doc, ok, err := idx.Document(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Known", doc.Title)

	_, ok, err = idx.Document(context.Background(), "doc-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
