// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := New(dir, "explore")
	require.NoError(t, err)

	logger.Info("namespace loaded", zap.String("namespace", "shop"), zap.Int("resources", 4))
	logger.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(logger.Path), "explore-"))
	assert.Equal(t, ".log", filepath.Ext(logger.Path))

	data, err := os.ReadFile(logger.Path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "namespace loaded", entry["msg"])
	assert.Equal(t, "shop", entry["namespace"])
	assert.Equal(t, "explore", entry["command"])
	assert.Contains(t, entry["ts"], "T")
}

func TestCloseReleasesFile(t *testing.T) {
	logger, err := New(t.TempDir(), "tree")
	require.NoError(t, err)
	file := logger.file
	require.NotNil(t, file)

	logger.Close()
	assert.Nil(t, logger.file)
	assert.ErrorIs(t, file.Close(), os.ErrClosed, "file already closed")
	assert.NotPanics(t, logger.Close)
}

func TestNilClose(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, l.Close)
	assert.NotPanics(t, (&Logger{}).Close)
}
