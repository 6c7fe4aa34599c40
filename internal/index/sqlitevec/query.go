// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/index"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// poolOversample controls how many KNN candidates are pulled from vec0
// as the MMR working pool, relative to the requested k.
const (
	poolOversample = 4
	poolMinimum    = 32
)

// Similar performs a cosine KNN query against the vec0 table.
func (s *Store) Similar(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	return s.knn(ctx, query, k)
}

// Retrieve pulls an oversampled KNN pool from vec0 and applies MMR
// selection in process. The pool bound keeps the O(k*n) re-rank cheap
// while covering the diversity spread the spec asks for.
func (s *Store) Retrieve(ctx context.Context, query []float32, k int, lambda float64) ([]index.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	poolK := k * poolOversample
	if poolK < poolMinimum {
		poolK = poolMinimum
	}

	pool, err := s.knn(ctx, query, poolK)
	if err != nil {
		return nil, err
	}

	return index.SelectMMR(pool, k, lambda), nil
}

// knn runs a vec0 MATCH query and hydrates full chunks in distance
// order, breaking distance ties by insertion sequence so equal-score
// candidates keep a stable rank. The vec0 cosine distance d maps to
// similarity 1-d.
func (s *Store) knn(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "serializing query vector")
	}

	const q = `SELECT v.id, v.distance, c.doc_id, c.text, c.media, c.embedding
FROM chunk_vectors v
JOIN chunks c ON c.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance, c.seq`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "searching chunk vectors")
	}
	defer func() { _ = rows.Close() }()

	var results []index.Result
	for rows.Next() {
		var (
			chunk     corpus.Chunk
			distance  float64
			mediaJSON string
			embBlob   []byte
		)
		if err := rows.Scan(&chunk.ID, &distance, &chunk.DocID, &chunk.Text, &mediaJSON, &embBlob); err != nil {
			return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "scanning chunk row")
		}

		if mediaJSON != "" && mediaJSON != "[]" {
			if err := json.Unmarshal([]byte(mediaJSON), &chunk.Media); err != nil {
				return nil, cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "unmarshalling media for chunk %s", chunk.ID)
			}
		}
		chunk.Embedding = deserializeFloat32(embBlob)

		results = append(results, index.Result{Chunk: chunk, Similarity: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "iterating chunk rows")
	}

	return results, nil
}

// SearchText answers a keyword query from the FTS5 table, with optional
// document year-range filtering.
func (s *Store) SearchText(ctx context.Context, query string, opts index.SearchOpts) ([]index.SearchHit, error) {
	if query == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	const q = `SELECT f.chunk_id, c.doc_id,
	COALESCE(NULLIF(d.title, ''), d.name, '') AS title,
	COALESCE(d.year, 0) AS year,
	snippet(chunks_fts, 1, '', '', '…', 24)
FROM chunks_fts f
JOIN chunks c ON c.id = f.chunk_id
LEFT JOIN documents d ON d.id = c.doc_id
WHERE chunks_fts MATCH ?
	AND (? = 0 OR d.year = 0 OR d.year IS NULL OR d.year >= ?)
	AND (? = 0 OR d.year = 0 OR d.year IS NULL OR d.year <= ?)
ORDER BY rank
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, query, opts.MinYear, opts.MinYear, opts.MaxYear, opts.MaxYear, limit)
	if err != nil {
		return nil, cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "full-text search %q", query)
	}
	defer func() { _ = rows.Close() }()

	var hits []index.SearchHit
	for rows.Next() {
		var (
			hit  index.SearchHit
			year sql.NullInt64
		)
		if err := rows.Scan(&hit.ChunkID, &hit.DocID, &hit.Title, &year, &hit.Snippet); err != nil {
			return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "scanning search hit")
		}
		hit.Year = int(year.Int64)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, cserr.Wrap(err, cserr.CodeIndexQueryFailure, "iterating search hits")
	}

	return hits, nil
}

// deserializeFloat32 decodes the little-endian float32 blob format
// sqlite-vec serializes embeddings into.
func deserializeFloat32(blob []byte) []float32 {
	out := make([]float32, 0, len(blob)/4)
	for i := 0; i+4 <= len(blob); i += 4 {
		bits := binary.LittleEndian.Uint32(blob[i:])
		out = append(out, math.Float32frombits(bits))
	}
	return out
}
