// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package index

import "github.com/citeseek-dev/citeseek/internal/corpus"

// poolSimilarityFloor excludes chunks with no positive similarity to the
// query from the MMR candidate pool. The floor is waived when applying it
// would leave fewer than k candidates.
const poolSimilarityFloor = 0.0

// mmrCandidate is one pool entry during MMR selection. order is the
// chunk's stable insertion position in the index and breaks final ties.
type mmrCandidate struct {
	chunk corpus.Chunk
	sim   float64
	order int
}

// selectMMR greedily picks up to k candidates maximizing
//
//	lambda*sim(query,c) - (1-lambda)*max(sim(c, selected))
//
// Ties break by higher raw query similarity, then by insertion order.
// The input slice is consumed as the working pool.
func selectMMR(pool []mmrCandidate, k int, lambda float64) []Result {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	selected := make([]Result, 0, min(k, len(pool)))
	selectedEmb := make([][]float32, 0, min(k, len(pool)))

	for len(selected) < k && len(pool) > 0 {
		best := -1
		var bestScore float64

		for i, c := range pool {
			penalty := 0.0
			for _, emb := range selectedEmb {
				if s := Cosine(c.chunk.Embedding, emb); s > penalty {
					penalty = s
				}
			}
			score := lambda*c.sim - (1-lambda)*penalty

			if best == -1 {
				best, bestScore = i, score
				continue
			}
			switch {
			case score > bestScore:
				best, bestScore = i, score
			case score == bestScore:
				if c.sim > pool[best].sim ||
					(c.sim == pool[best].sim && c.order < pool[best].order) {
					best, bestScore = i, score
				}
			}
		}

		chosen := pool[best]
		selected = append(selected, Result{Chunk: chosen.chunk, Similarity: chosen.sim})
		selectedEmb = append(selectedEmb, chosen.chunk.Embedding)
		pool = append(pool[:best], pool[best+1:]...)
	}

	return selected
}

// SelectMMR applies MMR selection to candidates already scored against
// the query. Candidate position doubles as the tie-break order, so
// callers should pass candidates in a stable order (KNN rank or index
// insertion order).
func SelectMMR(candidates []Result, k int, lambda float64) []Result {
	cands := make([]mmrCandidate, 0, len(candidates))
	for i, r := range candidates {
		cands = append(cands, mmrCandidate{chunk: r.Chunk, sim: r.Similarity, order: i})
	}
	return selectMMR(buildPool(cands, k), k, lambda)
}

// buildPool filters candidates to those above the similarity floor,
// falling back to the full candidate set when the floor would leave
// fewer than k entries.
func buildPool(cands []mmrCandidate, k int) []mmrCandidate {
	pool := make([]mmrCandidate, 0, len(cands))
	for _, c := range cands {
		if c.sim > poolSimilarityFloor {
			pool = append(pool, c)
		}
	}
	if len(pool) < k {
		pool = pool[:0]
		pool = append(pool, cands...)
	}
	return pool
}
