// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package sqlitevec implements the index boundary on SQLite: chunk
// embeddings live in a sqlite-vec vec0 virtual table for KNN, chunk text
// in an FTS5 table for keyword search, and document metadata alongside.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/index"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface checks.
var (
	_ index.Index          = (*Store)(nil)
	_ index.Writer         = (*Store)(nil)
	_ index.DocumentLookup = (*Store)(nil)
	_ index.TextSearcher   = (*Store)(nil)
)

// Store is a SQLite-backed index.
type Store struct {
	db         *sql.DB
	dimensions int
}

// Open opens (or creates) the database at dbPath and runs migrations.
func Open(dbPath string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, cserr.Errorf(cserr.CodeIndexOpenFailure, "embedding dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, cserr.Wrapf(err, cserr.CodeIndexOpenFailure, "opening sqlite db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cserr.Wrap(err, cserr.CodeIndexOpenFailure, "pinging sqlite db")
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, cserr.Wrap(err, cserr.CodeIndexOpenFailure, "migrating index tables")
	}

	return &Store{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating chunk_vectors virtual table: %w", err)
	}

	const chunksDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	doc_id    TEXT NOT NULL,
	text      TEXT NOT NULL,
	media     TEXT NOT NULL DEFAULT '[]',
	embedding BLOB NOT NULL,
	seq       INTEGER
)`
	if _, err := db.Exec(chunksDDL); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	const docsDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	authors        TEXT NOT NULL DEFAULT '[]',
	year           INTEGER NOT NULL DEFAULT 0,
	doi            TEXT NOT NULL DEFAULT '',
	citation_count INTEGER NOT NULL DEFAULT 0,
	retracted      INTEGER NOT NULL DEFAULT 0
)`
	if _, err := db.Exec(docsDDL); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	const ftsDDL = `CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(chunk_id UNINDEXED, text)`
	if _, err := db.Exec(ftsDDL); err != nil {
		return fmt.Errorf("creating chunks_fts table: %w", err)
	}

	return nil
}

// Add inserts or replaces chunks. Re-adding an id keeps its original
// insertion sequence so retrieval tie-breaks stay stable.
func (s *Store) Add(ctx context.Context, chunks []corpus.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cserr.Wrap(err, cserr.CodeIndexQueryFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range chunks {
		if c.ID == "" {
			return cserr.New(cserr.CodeIndexAddInvalidInput, "chunk id is required")
		}
		if len(c.Embedding) != s.dimensions {
			return cserr.Errorf(cserr.CodeIndexAddInvalidInput,
				"chunk %s: embedding has %d dimensions, index expects %d", c.ID, len(c.Embedding), s.dimensions)
		}

		blob, err := sqlite_vec.SerializeFloat32(c.Embedding)
		if err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexAddInvalidInput, "serializing embedding for chunk %s", c.ID)
		}

		mediaJSON, err := json.Marshal(c.Media)
		if err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexAddInvalidInput, "marshalling media for chunk %s", c.ID)
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE id = ?`, c.ID); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "deleting existing vector %s", c.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunk_vectors(id, embedding) VALUES (?, ?)`, c.ID, blob); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "inserting vector %s", c.ID)
		}

		const chunkQ = `INSERT INTO chunks(id, doc_id, text, media, embedding, seq)
VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chunks))
ON CONFLICT(id) DO UPDATE SET
	doc_id = excluded.doc_id,
	text = excluded.text,
	media = excluded.media,
	embedding = excluded.embedding`
		if _, err := tx.ExecContext(ctx, chunkQ, c.ID, c.DocID, c.Text, string(mediaJSON), blob); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "upserting chunk %s", c.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, c.ID); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "clearing fts row for chunk %s", c.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunks_fts(chunk_id, text) VALUES (?, ?)`, c.ID, c.Text); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "inserting fts row for chunk %s", c.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return cserr.Wrap(err, cserr.CodeIndexQueryFailure, "committing chunk insert")
	}
	return nil
}

// AddDocuments upserts document metadata.
func (s *Store) AddDocuments(ctx context.Context, docs []corpus.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cserr.Wrap(err, cserr.CodeIndexQueryFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO documents(id, name, title, authors, year, doi, citation_count, retracted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	title = excluded.title,
	authors = excluded.authors,
	year = excluded.year,
	doi = excluded.doi,
	citation_count = excluded.citation_count,
	retracted = excluded.retracted`

	for _, d := range docs {
		if d.ID == "" {
			return cserr.New(cserr.CodeIndexAddInvalidInput, "document id is required")
		}
		authorsJSON, err := json.Marshal(d.Authors)
		if err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexAddInvalidInput, "marshalling authors for document %s", d.ID)
		}
		retracted := 0
		if d.Retracted {
			retracted = 1
		}
		if _, err := tx.ExecContext(ctx, q, d.ID, d.Name, d.Title, string(authorsJSON), d.Year, d.DOI, d.CitationCount, retracted); err != nil {
			return cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "upserting document %s", d.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return cserr.Wrap(err, cserr.CodeIndexQueryFailure, "committing document upsert")
	}
	return nil
}

// Document looks up document metadata by id.
func (s *Store) Document(ctx context.Context, docID string) (corpus.Document, bool, error) {
	const q = `SELECT id, name, title, authors, year, doi, citation_count, retracted
FROM documents WHERE id = ?`

	var (
		doc         corpus.Document
		authorsJSON string
		retracted   int
	)
	err := s.db.QueryRowContext(ctx, q, docID).Scan(
		&doc.ID, &doc.Name, &doc.Title, &authorsJSON, &doc.Year, &doc.DOI, &doc.CitationCount, &retracted,
	)
	if err == sql.ErrNoRows {
		return corpus.Document{}, false, nil
	}
	if err != nil {
		return corpus.Document{}, false, cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "loading document %s", docID)
	}

	if err := json.Unmarshal([]byte(authorsJSON), &doc.Authors); err != nil {
		return corpus.Document{}, false, cserr.Wrapf(err, cserr.CodeIndexQueryFailure, "unmarshalling authors for document %s", docID)
	}
	doc.Retracted = retracted != 0

	return doc, true, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
