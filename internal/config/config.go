// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package config resolves explorer settings from defaults, an optional YAML
// file, CUB_EXPLORER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/confighub/cub-explorer/internal/logging"
	"github.com/confighub/cub-explorer/pkg/manifest"
)

const (
	EnvPrefix = "CUB_EXPLORER"

	KeyKubeconfig   = "kubeconfig"
	KeyContext      = "context"
	KeyWorkers      = "workers"
	KeyLogsSince    = "logs.since"
	KeyLogsTail     = "logs.tail"
	KeyLogsInterval = "logs.interval"
	KeyLogDir       = "log_dir"
	KeyMetricsAddr  = "metrics_addr"
	KeyListTimeout  = "list_timeout"
	KeyFormat       = "viewer.format"

	DefaultWorkers      = 8
	DefaultLogsSince    = 168 * time.Hour
	DefaultLogsTail     = 100
	DefaultLogsInterval = 500 * time.Millisecond
	DefaultListTimeout  = 30 * time.Second
)

// flag name -> config key, for flags whose names differ from their key.
var flagKeys = map[string]string{
	"kubeconfig":   KeyKubeconfig,
	"context":      KeyContext,
	"workers":      KeyWorkers,
	"since":        KeyLogsSince,
	"tail":         KeyLogsTail,
	"interval":     KeyLogsInterval,
	"log-dir":      KeyLogDir,
	"metrics-addr": KeyMetricsAddr,
	"format":       KeyFormat,
}

// Config is the resolved configuration.
type Config struct {
	Kubeconfig  string
	Context     string
	Workers     int
	Logs        Logs
	LogDir      string
	MetricsAddr string
	// ListTimeout bounds each API list call.
	ListTimeout time.Duration
	// Format is the viewer mode the dashboard starts in.
	Format      manifest.Format
	// File is the config file that was read, if any.
	File        string
}

// Logs configures the log aggregator.
type Logs struct {
	Since    time.Duration
	Tail     int64
	Interval time.Duration
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyKubeconfig, "")
	v.SetDefault(KeyContext, "")
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyLogsSince, DefaultLogsSince)
	v.SetDefault(KeyLogsTail, DefaultLogsTail)
	v.SetDefault(KeyLogsInterval, DefaultLogsInterval)
	v.SetDefault(KeyLogDir, logging.DefaultDir)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyListTimeout, DefaultListTimeout)
	v.SetDefault(KeyFormat, manifest.FormatYAML.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every known flag present in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// DefaultFile is $HOME/.config/cub-explorer/config.yaml.
func DefaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cub-explorer", "config.yaml")
}

// Load reads path (which must exist) or, when path is empty, the default file
// if present, and returns the validated configuration.
func Load(v *viper.Viper, path string) (*Config, error) {
	file := path
	if file == "" {
		if def := DefaultFile(); def != "" {
			if _, err := os.Stat(def); err == nil {
				file = def
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Kubeconfig: v.GetString(KeyKubeconfig),
		Context:    v.GetString(KeyContext),
		Workers:    v.GetInt(KeyWorkers),
		Logs: Logs{
			Since:    v.GetDuration(KeyLogsSince),
			Tail:     v.GetInt64(KeyLogsTail),
			Interval: v.GetDuration(KeyLogsInterval),
		},
		LogDir:      v.GetString(KeyLogDir),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		ListTimeout: v.GetDuration(KeyListTimeout),
		File:        file,
	}
	format, formatErr := manifest.ParseFormat(v.GetString(KeyFormat))
	if formatErr != nil {
		formatErr = fmt.Errorf("%s: %w", KeyFormat, formatErr)
	}
	cfg.Format = format
	if err := errors.Join(formatErr, cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the explorer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyWorkers, c.Workers))
	}
	if c.Logs.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyLogsInterval, c.Logs.Interval))
	}
	if c.ListTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyListTimeout, c.ListTimeout))
	}
	if c.Logs.Tail < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyLogsTail, c.Logs.Tail))
	}
	if c.Logs.Since < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyLogsSince, c.Logs.Since))
	}
	return errors.Join(errs...)
}
