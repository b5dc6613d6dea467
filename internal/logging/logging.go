// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package logging builds the file-backed zap logger. The terminal belongs to
// the dashboard, so nothing is ever written to stdout or stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultDir is relative to the working directory.
const DefaultDir = ".confighub/logs"

// Logger is a zap logger plus the file it writes to.
type Logger struct {
	*zap.Logger
	Path string

	file *os.File
}

// New creates <dir>/<command>-<timestamp>.log and a JSON logger writing to it.
func New(dir, command string) (*Logger, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", command, timestamp))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	sink := zapcore.AddSync(file)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, zap.InfoLevel)

	logger := zap.New(core, zap.AddCaller(), zap.ErrorOutput(sink)).
		With(zap.String("command", command))
	logger.Info("started", zap.Time("start", time.Now()))
	return &Logger{Logger: logger, Path: path, file: file}, nil
}

// Close flushes buffered entries and releases the file. Safe on a nil Logger
// and safe to call twice.
func (l *Logger) Close() {
	if l == nil || l.Logger == nil {
		return
	}
	_ = l.Sync()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
