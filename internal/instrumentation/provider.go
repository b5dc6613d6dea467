// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package instrumentation wires OpenTelemetry metrics and, when an address is
// configured, serves them in Prometheus format.
package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/confighub/cub-explorer"

// Provider owns the meter provider and the optional /metrics server.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	metrics       *Metrics
	server        *http.Server
	logger        *zap.Logger
}

// NewProvider builds a provider. With enabled=false the metrics are backed by
// a no-op meter and Serve does nothing.
func NewProvider(enabled bool, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{logger: logger}

	var meter metric.Meter
	if enabled {
		p.registry = prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		meter = p.meterProvider.Meter(meterName)
	} else {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	m, err := NewMetrics(meter)
	if err != nil {
		return nil, err
	}
	p.metrics = m
	return p, nil
}

// Metrics returns the instruments.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Handler serves the Prometheus exposition, or 404 when disabled.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics in the background. An empty addr
// or a disabled provider is a no-op.
func (p *Provider) Serve(addr string) error {
	if addr == "" || p.registry == nil {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	p.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server and flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.server != nil {
		errs = append(errs, p.server.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
