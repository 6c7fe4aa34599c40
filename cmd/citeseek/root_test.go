// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"serve", "ask", "search", "ingest", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "citeseek dev")
}

func TestSearchCmd_EmptyMemoryIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "citeseek.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  backend: memory\n"), 0o644))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"search", "attention", "--config", cfgPath})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "no matching documents")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "citeseek.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  backend: memory\n"), 0o644))

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ingest", filepath.Join(dir, "missing.json"), "--config", cfgPath})

	require.Error(t, root.Execute())
}
