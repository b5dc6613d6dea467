// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDiscoveryQuery(ctx, "Pod", ResultSuccess, 20*time.Millisecond)
	m.RecordDiscoveryQuery(ctx, "Widget", ResultError, time.Second)
	m.RecordCatalogFailure(ctx, "forbidden")
	m.RecordLogLines(ctx, 5)
	m.RecordLogLines(ctx, 0)
	m.LogWatcherStarted(ctx)
	m.LogWatcherStarted(ctx)
	m.LogWatcherStopped(ctx)
	m.RecordLogStreamRetry(ctx)

	data := collect(t, reader)

	queries, ok := data["explorer_discovery_queries_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, queries.DataPoints, 2)

	lines, ok := data["explorer_log_lines_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, lines.DataPoints, 1)
	assert.Equal(t, int64(5), lines.DataPoints[0].Value)

	watchers, ok := data["explorer_log_watchers"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, watchers.DataPoints, 1)
	assert.Equal(t, int64(1), watchers.DataPoints[0].Value)
	assert.False(t, watchers.IsMonotonic)

	_, ok = data["explorer_discovery_query_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordDiscoveryQuery(ctx, "Pod", ResultSuccess, time.Millisecond)
		m.RecordCatalogFailure(ctx, "network")
		m.RecordLogLines(ctx, 3)
		m.LogWatcherStarted(ctx)
		m.LogWatcherStopped(ctx)
		m.RecordLogStreamRetry(ctx)
	})
}

func TestDisabledProvider(t *testing.T) {
	p, err := NewProvider(false, nil)
	require.NoError(t, err)
	require.NotNil(t, p.Metrics())
	p.Metrics().RecordLogLines(context.Background(), 1)

	require.NoError(t, p.Serve(":0"))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPrometheusExposition(t *testing.T) {
	p, err := NewProvider(true, nil)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	p.Metrics().RecordDiscoveryQuery(context.Background(), "Pod", ResultSuccess, time.Millisecond)
	p.Metrics().RecordLogLines(context.Background(), 2)

	server := httptest.NewServer(p.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "explorer_discovery_queries_total")
	assert.Contains(t, string(body), "explorer_log_lines_total")
}
