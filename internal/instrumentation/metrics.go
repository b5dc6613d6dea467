// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrKind   = "kind"
	attrResult = "result"
	attrClass  = "class"

	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics records explorer activity. A nil *Metrics records nothing.
type Metrics struct {
	discoveryQueries  metric.Int64Counter
	discoveryDuration metric.Float64Histogram
	catalogFailures   metric.Int64Counter
	logLines          metric.Int64Counter
	logTasks          metric.Int64UpDownCounter
	logStreamRetries  metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.discoveryQueries, err = meter.Int64Counter(
		"explorer_discovery_queries_total",
		metric.WithDescription("Per-kind list queries issued while loading a namespace"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_discovery_queries_total counter: %w", err)
	}

	m.discoveryDuration, err = meter.Float64Histogram(
		"explorer_discovery_query_duration_seconds",
		metric.WithDescription("Duration of a single list query"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_discovery_query_duration_seconds histogram: %w", err)
	}

	m.catalogFailures, err = meter.Int64Counter(
		"explorer_crd_catalog_failures_total",
		metric.WithDescription("CRD listings that failed and produced an empty catalog"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_crd_catalog_failures_total counter: %w", err)
	}

	m.logLines, err = meter.Int64Counter(
		"explorer_log_lines_total",
		metric.WithDescription("Log lines merged into the aggregated feed"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_log_lines_total counter: %w", err)
	}

	m.logTasks, err = meter.Int64UpDownCounter(
		"explorer_log_watchers",
		metric.WithDescription("Running per-container log watchers"),
		metric.WithUnit("{watcher}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_log_watchers gauge: %w", err)
	}

	m.logStreamRetries, err = meter.Int64Counter(
		"explorer_log_stream_retries_total",
		metric.WithDescription("Log stream opens retried while a container starts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer_log_stream_retries_total counter: %w", err)
	}

	return m, nil
}

// RecordDiscoveryQuery counts one list query for kind.
func (m *Metrics) RecordDiscoveryQuery(ctx context.Context, kind, result string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrResult, result),
	)
	m.discoveryQueries.Add(ctx, 1, attrs)
	m.discoveryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCatalogFailure counts a CRD listing failure by error class.
func (m *Metrics) RecordCatalogFailure(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.catalogFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrClass, class)))
}

// RecordLogLines counts merged lines.
func (m *Metrics) RecordLogLines(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.logLines.Add(ctx, int64(n))
}

// LogWatcherStarted and LogWatcherStopped track running watchers.
func (m *Metrics) LogWatcherStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.logTasks.Add(ctx, 1)
}

func (m *Metrics) LogWatcherStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.logTasks.Add(ctx, -1)
}

// RecordLogStreamRetry counts a retried stream open.
func (m *Metrics) RecordLogStreamRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.logStreamRetries.Add(ctx, 1)
}
