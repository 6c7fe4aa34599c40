// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citeseek-dev/citeseek/internal/config"
	"github.com/citeseek-dev/citeseek/internal/corpus"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <corpus.json>",
		Short: "Embed and index a corpus file",
		Long:  "Read pre-chunked documents from a JSON file, embed each chunk, and add everything to the index. Re-ingesting a chunk id replaces the prior entry.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
}

// ingestFile is the on-disk corpus format.
type ingestFile struct {
	Documents []ingestDocument `json:"documents"`
}

type ingestDocument struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Title         string        `json:"title"`
	Authors       []string      `json:"authors"`
	Year          int           `json:"year"`
	DOI           string        `json:"doi"`
	CitationCount int           `json:"citation_count"`
	Retracted     bool          `json:"retracted"`
	Chunks        []ingestChunk `json:"chunks"`
}

type ingestChunk struct {
	ID    string        `json:"id"`
	Text  string        `json:"text"`
	Media []ingestMedia `json:"media"`
}

type ingestMedia struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return cserr.Wrapf(err, cserr.CodeCLIInputInvalid, "reading corpus file %s", args[0])
	}

	var file ingestFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return cserr.Wrapf(err, cserr.CodeCLIInputInvalid, "parsing corpus file %s", args[0])
	}
	if len(file.Documents) == 0 {
		return cserr.New(cserr.CodeCLIInputInvalid, "corpus file contains no documents")
	}

	app, err := wireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx := cmd.Context()
	docs := make([]corpus.Document, 0, len(file.Documents))
	var chunks []corpus.Chunk

	for _, d := range file.Documents {
		if d.ID == "" {
			return cserr.New(cserr.CodeCLIInputInvalid, "document without id in corpus file")
		}
		docs = append(docs, corpus.Document{
			ID:            d.ID,
			Name:          d.Name,
			Title:         d.Title,
			Authors:       d.Authors,
			Year:          d.Year,
			DOI:           d.DOI,
			CitationCount: d.CitationCount,
			Retracted:     d.Retracted,
		})

		for i, c := range d.Chunks {
			id := c.ID
			if id == "" {
				id = fmt.Sprintf("%s#%d", d.ID, i)
			}

			embedding, err := embedChunk(ctx, app, c.Text)
			if err != nil {
				return cserr.Wrapf(err, cserr.CodeEmbeddingFailure, "embedding chunk %s", id)
			}

			media := make([]corpus.Media, 0, len(c.Media))
			for _, m := range c.Media {
				media = append(media, corpus.Media{
					Kind:        corpus.MediaKind(m.Kind),
					Description: m.Description,
				})
			}

			chunks = append(chunks, corpus.Chunk{
				ID:        id,
				DocID:     d.ID,
				Text:      c.Text,
				Embedding: embedding,
				Media:     media,
			})
		}
	}

	if err := app.Store.AddDocuments(ctx, docs); err != nil {
		return err
	}
	if err := app.Store.Add(ctx, chunks); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents, %d chunks\n", len(docs), len(chunks))
	return nil
}

func embedChunk(ctx context.Context, app *App, text string) ([]float32, error) {
	var embedding []float32
	err := app.Executor.Execute(ctx, "embed", func(ctx context.Context) error {
		var callErr error
		embedding, callErr = app.Embedder.Embed(ctx, text)
		return callErr
	})
	return embedding, err
}
