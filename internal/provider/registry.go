// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package provider

import (
	"strings"
	"sync"

	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Registry maps provider names to Completer implementations and resolves
// "provider/model" references. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	completers map[string]Completer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{completers: make(map[string]Completer)}
}

// Register adds a Completer under its provider name. Re-registering a
// name replaces the prior entry.
func (r *Registry) Register(c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completers[c.Name()] = c
}

// Resolve splits a "provider/model" reference and returns the registered
// Completer with the bare model name.
func (r *Registry) Resolve(ref string) (Completer, string, error) {
	providerName, model, ok := strings.Cut(ref, "/")
	if !ok || providerName == "" || model == "" {
		return nil, "", cserr.Errorf(cserr.CodeProviderInvalidModelRef,
			"model reference %q must be provider/model", ref)
	}

	r.mu.RLock()
	c, ok := r.completers[providerName]
	r.mu.RUnlock()
	if !ok {
		return nil, "", cserr.New(cserr.CodeProviderNotFound,
			"no such provider registered", cserr.FieldProvider(providerName))
	}

	return c, model, nil
}
