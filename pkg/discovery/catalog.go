// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package discovery finds the resources of a namespace: it loads the custom
// resource catalog and fans list queries out over a bounded worker pool.
// Failures are logged and absorbed so that a namespace always loads.
package discovery

import (
	"context"

	"go.uber.org/zap"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/internal/instrumentation"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// DefinitionLister lists every CRD of a context.
type DefinitionLister interface {
	ListCustomResourceDefinitions(ctx context.Context, kubeContext string) ([]resource.CustomResourceDefinition, error)
}

// Catalog loads namespaced custom resource definitions.
type Catalog struct {
	lister  DefinitionLister
	logger  *zap.Logger
	metrics *instrumentation.Metrics
}

func NewCatalog(lister DefinitionLister, logger *zap.Logger, metrics *instrumentation.Metrics) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{lister: lister, logger: logger, metrics: metrics}
}

// ListNamespacedDefinitions returns the namespaced definitions that have an
// active version. A listing failure yields an empty catalog.
func (c *Catalog) ListNamespacedDefinitions(ctx context.Context, kubeContext string) []resource.CustomResourceDefinition {
	defs, err := c.lister.ListCustomResourceDefinitions(ctx, kubeContext)
	if err != nil {
		class := clierr.ClassifyError(err)
		c.logger.Warn("crd catalog unavailable",
			zap.String("context", kubeContext),
			zap.String("class", class),
			zap.Error(err))
		c.metrics.RecordCatalogFailure(ctx, class)
		return nil
	}

	out := make([]resource.CustomResourceDefinition, 0, len(defs))
	for _, d := range defs {
		if !d.Namespaced() {
			continue
		}
		if d.Version == "" {
			c.logger.Debug("skipping crd without a served or stored version", zap.String("crd", d.Name))
			continue
		}
		out = append(out, d)
	}
	return out
}
