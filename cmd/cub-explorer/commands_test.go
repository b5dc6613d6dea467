// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confighub/cub-explorer/internal/config"
	"github.com/confighub/cub-explorer/pkg/cluster"
)

// executeCommand runs the root command against reg with a throwaway home and
// log directory.
func executeCommand(t *testing.T, reg *cluster.Registry, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	orig := newRegistry
	newRegistry = func(*config.Config) (*cluster.Registry, error) { return reg, nil }
	t.Cleanup(func() { newRegistry = orig })

	treeJSON = false
	logsNamespace = "default"
	logsNoColor = false
	configFile = ""

	logDir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-dir", logDir))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), logDir, err
}

func TestVersionCommand(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cub-explorer version dev")
}

func TestCompletionCommand(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "cub-explorer")

	_, _, err = executeCommand(t, reg, "completion", "tcsh")
	assert.Error(t, err)
}

func TestContextsCommand(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, logDir, err := executeCommand(t, reg, "contexts")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "* dev"))
	assert.Contains(t, lines[1], "prod")
	assert.Contains(t, lines[1], "kind-prod")

	files, err := filepath.Glob(filepath.Join(logDir, "contexts-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1, "every command logs to its own file")
	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"configured"`)
}

func TestTreeCommand(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "tree", "shop")
	require.NoError(t, err)

	assert.Contains(t, out, "Ownership Hierarchy")
	assert.Contains(t, out, "dev/shop (2 roots)")
	assert.Contains(t, out, "├── ConfigMap settings")
	assert.Contains(t, out, "└── Deployment web")
	assert.Contains(t, out, "    └── ReplicaSet web-7d9c")
	assert.Contains(t, out, "        └── Pod web-7d9c-abcde")
}

func TestTreeCommandJSON(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "tree", "shop", "--json")
	require.NoError(t, err)

	var entries []treeEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "settings", entries[0].Name)

	dep := entries[1]
	assert.Equal(t, "Deployment", dep.Kind)
	require.Len(t, dep.Children, 1)
	require.Len(t, dep.Children[0].Children, 1)
	assert.Equal(t, "web-7d9c-abcde", dep.Children[0].Children[0].Name)
	assert.Equal(t, "pod-1", dep.Children[0].Children[0].UID)
}

func TestTreeCommandEmptyAndMissingNamespace(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "tree", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "No resources found in default")

	_, _, err = executeCommand(t, reg, "tree", "billing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `namespace "billing" not found`)
	assert.Contains(t, err.Error(), "Hint:")
}

func TestLogsCommand(t *testing.T) {
	reg, _ := fixtureRegistry()
	out, _, err := executeCommand(t, reg, "logs", "web-7d9c-abcde", "-n", "shop", "--interval", "10ms", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "[app] fake logs")
	assert.Contains(t, out, "[sidecar] fake logs")
}

func TestLogsCommandMissingPod(t *testing.T) {
	reg, _ := fixtureRegistry()
	_, _, err := executeCommand(t, reg, "logs", "nope", "-n", "shop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pod "nope" not found`)
	assert.Contains(t, err.Error(), "cub-explorer tree shop")
}

func TestResolveContext(t *testing.T) {
	contexts := []string{"dev", "kind-prod", "arn:aws:eks:us-east-1:123456789012:cluster/billing"}

	name, err := resolveContext(contexts, "prod")
	require.NoError(t, err)
	assert.Equal(t, "kind-prod", name)

	name, err = resolveContext(contexts, "billing")
	require.NoError(t, err)
	assert.Equal(t, contexts[2], name)

	_, err = resolveContext(contexts, "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `context "staging" does not match`)
	assert.Contains(t, err.Error(), "cub-explorer contexts")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	reg, _ := fixtureRegistry()
	_, _, err := executeCommand(t, reg, "contexts", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be positive")

	// Reset the persistent flag for later tests.
	require.NoError(t, rootCmd.PersistentFlags().Set("workers", "8"))
}
