// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package openai implements the Completer and Embedder boundaries with
// the OpenAI Chat Completions and Embeddings APIs.
package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// defaultEmbeddingDimensions matches text-embedding-3-small.
const defaultEmbeddingDimensions = 1536

// Config holds OpenAI client configuration.
type Config struct {
	APIKey         string
	BaseURL        string // optional, useful for testing against a mock server
	EmbeddingModel string
	// EmbeddingDimensions overrides the dimension count reported by
	// Dimensions(); 0 means the model default.
	EmbeddingDimensions int
}

// Compile-time interface checks.
var (
	_ provider.Completer = (*Client)(nil)
	_ provider.Embedder  = (*Client)(nil)
)

// Client implements both collaborator roles against OpenAI.
type Client struct {
	client openaisdk.Client
	config Config
}

// New creates a Client. Returns an error if the API key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, cserr.New(cserr.CodeProviderRequestInvalid, "openai: missing api_key in config")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = defaultEmbeddingDimensions
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (c *Client) Name() string { return "openai" }

// Complete runs one non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.System))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}
	if req.JSONResponse {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Completion{}, wrapUpstream(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return provider.Completion{}, cserr.New(cserr.CodeProviderUpstreamFailure,
			"openai returned no choices", cserr.FieldModel(req.Model))
	}

	return provider.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// Embed produces a dense vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(c.config.EmbeddingModel),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
	})
	if err != nil {
		return nil, wrapUpstream(err, "openai embedding")
	}
	if len(resp.Data) == 0 {
		return nil, cserr.New(cserr.CodeEmbeddingFailure, "openai returned no embedding data")
	}

	raw := resp.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

func (c *Client) Dimensions() int {
	return c.config.EmbeddingDimensions
}

func wrapUpstream(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return cserr.Wrap(err, cserr.CodeProviderUpstreamTimeout, msg)
	}
	return cserr.Wrap(err, cserr.CodeProviderUpstreamFailure, msg)
}
