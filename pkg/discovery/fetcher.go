// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/internal/instrumentation"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// DefaultWorkers bounds concurrent list queries per namespace load.
const DefaultWorkers = 8

// ResourceLister lists one kind in a namespace.
type ResourceLister interface {
	ListResources(ctx context.Context, kubeContext, namespace string, gvr schema.GroupVersionResource) ([]unstructured.Unstructured, error)
}

// Fetcher runs the per-kind queries of a namespace.
type Fetcher struct {
	lister  ResourceLister
	catalog *Catalog
	workers int
	logger  *zap.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithMetrics(m *instrumentation.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// NewFetcher builds a fetcher. catalog may be nil to query builtin kinds only.
func NewFetcher(lister ResourceLister, catalog *Catalog, opts ...Option) *Fetcher {
	f := &Fetcher{
		lister:  lister,
		catalog: catalog,
		workers: DefaultWorkers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Queries returns the builtin kinds followed by the namespaced custom kinds.
func (f *Fetcher) Queries(ctx context.Context, kubeContext string) []resource.Kind {
	queries := append([]resource.Kind(nil), resource.BuiltinKinds...)
	if f.catalog == nil {
		return queries
	}
	for _, d := range f.catalog.ListNamespacedDefinitions(ctx, kubeContext) {
		queries = append(queries, resource.Kind{Name: d.Kind, GVR: d.GVR()})
	}
	return queries
}

// FetchNamespaceResources lists every kind of the namespace concurrently.
// A failing query contributes nothing and never cancels the others. Result
// order is unspecified.
func (f *Fetcher) FetchNamespaceResources(ctx context.Context, kubeContext, namespace string) []resource.Resource {
	queries := f.Queries(ctx, kubeContext)
	results := make([][]resource.Resource, len(queries))

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = f.fetchKind(ctx, kubeContext, namespace, q)
			return nil
		})
	}
	_ = g.Wait()

	var out []resource.Resource
	for _, rs := range results {
		out = append(out, rs...)
	}
	f.logger.Debug("namespace fetched",
		zap.String("context", kubeContext),
		zap.String("namespace", namespace),
		zap.Int("queries", len(queries)),
		zap.Int("resources", len(out)))
	return out
}

func (f *Fetcher) fetchKind(ctx context.Context, kubeContext, namespace string, q resource.Kind) []resource.Resource {
	start := time.Now()
	items, err := f.lister.ListResources(ctx, kubeContext, namespace, q.GVR)
	if err != nil {
		f.metrics.RecordDiscoveryQuery(ctx, q.Name, instrumentation.ResultError, time.Since(start))
		f.logger.Warn("list query failed",
			zap.String("context", kubeContext),
			zap.String("namespace", namespace),
			zap.String("kind", q.Name),
			zap.String("class", clierr.ClassifyError(err)),
			zap.Error(err))
		return nil
	}
	f.metrics.RecordDiscoveryQuery(ctx, q.Name, instrumentation.ResultSuccess, time.Since(start))

	out := make([]resource.Resource, 0, len(items))
	for i := range items {
		out = append(out, resource.FromUnstructured(kubeContext, q.Name, &items[i]))
	}
	return out
}
