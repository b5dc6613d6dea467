// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/internal/config"
	"github.com/confighub/cub-explorer/internal/instrumentation"
	"github.com/confighub/cub-explorer/internal/kubecontext"
	"github.com/confighub/cub-explorer/internal/logging"
	"github.com/confighub/cub-explorer/pkg/cluster"
	"github.com/confighub/cub-explorer/pkg/discovery"
	"github.com/confighub/cub-explorer/pkg/logs"
)

// newRegistry opens the kubeconfig. Tests replace it with fake clients.
var newRegistry = func(cfg *config.Config) (*cluster.Registry, error) {
	timeout := cluster.WithListTimeout(cfg.ListTimeout)
	if cfg.Context == "" {
		return cluster.NewRegistry(cfg.Kubeconfig, "", timeout)
	}
	r, err := cluster.NewRegistry(cfg.Kubeconfig, "", timeout)
	if err != nil {
		return nil, err
	}
	name, err := resolveContext(r.Contexts(), cfg.Context)
	if err != nil {
		return nil, err
	}
	return cluster.NewRegistry(cfg.Kubeconfig, name, timeout)
}

// resolveContext maps a --context value to a kubeconfig context name.
func resolveContext(contexts []string, want string) (string, error) {
	name, ok := kubecontext.Match(contexts, want)
	if !ok {
		return "", clierr.WrapWithHint(
			fmt.Errorf("context %q does not match any kubeconfig context", want),
			"run 'cub-explorer contexts' to list them")
	}
	return name, nil
}

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	provider *instrumentation.Provider
	registry *cluster.Registry
	fetcher  *discovery.Fetcher
}

func newApp(cmd *cobra.Command, command string) (*app, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogDir, command)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	a.provider, err = instrumentation.NewProvider(cfg.MetricsAddr != "", logger.Logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.provider.Serve(cfg.MetricsAddr); err != nil {
		a.close()
		return nil, err
	}

	a.registry, err = newRegistry(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	metrics := a.provider.Metrics()
	catalog := discovery.NewCatalog(a.registry, logger.Logger, metrics)
	a.fetcher = discovery.NewFetcher(a.registry, catalog,
		discovery.WithWorkers(cfg.Workers),
		discovery.WithLogger(logger.Logger),
		discovery.WithMetrics(metrics))

	logger.Info("configured",
		zap.String("config", cfg.File),
		zap.String("context", a.registry.CurrentContext()),
		zap.Int("contexts", len(a.registry.Contexts())),
		zap.Int("workers", cfg.Workers))
	return a, nil
}

func (a *app) aggregator(opts ...logs.Option) *logs.Aggregator {
	options := append([]logs.Option{
		logs.WithLogger(a.logger.Logger),
		logs.WithMetrics(a.provider.Metrics()),
	}, opts...)
	return logs.NewAggregator(a.registry, logs.Options{
		Since:     a.cfg.Logs.Since,
		TailLines: a.cfg.Logs.Tail,
	}, options...)
}

func (a *app) close() {
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("finished")
	a.logger.Close()
}

func runExplore(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, "explore")
	if err != nil {
		return err
	}
	defer a.close()

	agg := a.aggregator()
	defer agg.Close()

	ctx := cmd.Context()
	m := newModel(ctx, a.registry.Contexts(), a.registry.CurrentContext(), a.registry, a.fetcher, agg,
		a.cfg.Logs.Interval, a.logger.Logger)
	m.format = a.cfg.Format

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
