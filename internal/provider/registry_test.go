// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct{ name string }

func (s *stubCompleter) Name() string { return s.name }

func (s *stubCompleter) Complete(_ context.Context, _ provider.CompletionRequest) (provider.Completion, error) {
	return provider.Completion{Text: "ok"}, nil
}

func TestRegistryResolve(t *testing.T) {
	r := provider.NewRegistry()
	r.Register(&stubCompleter{name: "openai"})

	c, model, err := r.Resolve("openai/gpt-4.1-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, "gpt-4.1-mini", model)
}

func TestRegistryResolveErrors(t *testing.T) {
	r := provider.NewRegistry()
	r.Register(&stubCompleter{name: "openai"})

	tests := []struct {
		name string
		ref  string
		code cserr.Code
	}{
		{"missing slash", "gpt-4.1-mini", cserr.CodeProviderInvalidModelRef},
		{"empty provider", "/gpt-4.1-mini", cserr.CodeProviderInvalidModelRef},
		{"empty model", "openai/", cserr.CodeProviderInvalidModelRef},
		{"unknown provider", "anthropic/claude-haiku-4-5", cserr.CodeProviderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Resolve(tt.ref)
			require.Error(t, err)
			assert.True(t, cserr.HasCode(err, tt.code))
		})
	}
}

func TestRegistryReplaceOnReRegister(t *testing.T) {
	r := provider.NewRegistry()
	first := &stubCompleter{name: "openai"}
	second := &stubCompleter{name: "openai"}
	r.Register(first)
	r.Register(second)

	c, _, err := r.Resolve("openai/gpt-4.1")
	require.NoError(t, err)
	assert.Same(t, second, c)
}

func TestUsageAdd(t *testing.T) {
	u := provider.Usage{InputTokens: 10, OutputTokens: 5}
	u.Add(provider.Usage{InputTokens: 7, OutputTokens: 3})
	assert.Equal(t, 17, u.InputTokens)
	assert.Equal(t, 8, u.OutputTokens)
}
