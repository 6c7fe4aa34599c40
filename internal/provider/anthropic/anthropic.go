// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package anthropic implements the Completer boundary with the Anthropic
// Messages API. Anthropic exposes no embedding endpoint, so this package
// does not implement Embedder.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// defaultMaxTokens bounds completions when the caller does not.
const defaultMaxTokens = 1024

// Config holds Anthropic client configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Compile-time interface check.
var _ provider.Completer = (*Client)(nil)

// Client implements the Completer role against Anthropic.
type Client struct {
	client anthropicsdk.Client
	config Config
}

// New creates a Client. Returns an error if the API key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, cserr.New(cserr.CodeProviderRequestInvalid, "anthropic: missing api_key in config")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: anthropicsdk.NewClient(opts...), config: cfg}, nil
}

func (c *Client) Name() string { return "anthropic" }

// Complete runs one non-streaming message turn.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	prompt := req.Prompt
	if req.JSONResponse {
		// The Messages API has no response-format knob; steer via prompt.
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return provider.Completion{}, cserr.Wrap(err, cserr.CodeProviderUpstreamTimeout, "anthropic message")
		}
		return provider.Completion{}, cserr.Wrap(err, cserr.CodeProviderUpstreamFailure, "anthropic message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return provider.Completion{}, cserr.New(cserr.CodeProviderUpstreamFailure,
			"anthropic returned no text content", cserr.FieldModel(req.Model))
	}

	return provider.Completion{
		Text: b.String(),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
