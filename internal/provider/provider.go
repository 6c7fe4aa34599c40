// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package provider defines the language-model and embedding collaborator
// boundaries the research pipeline depends on, plus the registry that
// routes provider/model references to implementations.
package provider

import "context"

// CompletionRequest is a single-shot structured LLM call. The pipeline
// only ever needs one round trip per unit of work: one per chunk
// summary, one per answer synthesis.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32

	// JSONResponse requests a JSON-object response from providers that
	// support constrained output. Callers still validate the payload.
	JSONResponse bool
}

// Completion is a model reply with its token usage.
type Completion struct {
	Text  string
	Usage Usage
}

// Usage tracks token consumption for one collaborator call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another call's usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Completer executes one-shot completions against a language model.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Embedder produces fixed-length dense vectors for text.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ToolDefinition describes a tool exposed upward to an orchestrating
// agent, in the JSON-schema shape LLM tool-use APIs expect.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}
