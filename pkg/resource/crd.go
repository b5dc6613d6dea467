// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package resource

import (
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Scope of a custom resource definition.
type Scope string

const (
	ScopeNamespaced Scope = "Namespaced"
	ScopeCluster    Scope = "Cluster"
)

// PrinterColumn is an additionalPrinterColumns hint.
type PrinterColumn struct {
	Name     string
	Type     string
	JSONPath string
}

// CustomResourceDefinition is the subset of a CRD the explorer needs.
type CustomResourceDefinition struct {
	Name           string
	Group          string
	Kind           string
	Plural         string
	Scope          Scope
	StoredVersions []string
	ServedVersions []string
	// Version is the resolved active version, empty if none could be resolved.
	Version        string
	PrinterColumns []PrinterColumn
}

// GVR returns the resource to list for the active version.
func (d CustomResourceDefinition) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: d.Group, Version: d.Version, Resource: d.Plural}
}

// Namespaced reports whether instances live inside namespaces.
func (d CustomResourceDefinition) Namespaced() bool {
	return d.Scope == ScopeNamespaced
}

// FromCRD converts an apiextensions object. The active version is the first
// stored version; without one, the first served spec version is used.
func FromCRD(crd *apiextv1.CustomResourceDefinition) CustomResourceDefinition {
	d := CustomResourceDefinition{
		Name:           crd.Name,
		Group:          crd.Spec.Group,
		Kind:           crd.Spec.Names.Kind,
		Plural:         crd.Spec.Names.Plural,
		Scope:          Scope(crd.Spec.Scope),
		StoredVersions: append([]string(nil), crd.Status.StoredVersions...),
	}

	for _, v := range crd.Spec.Versions {
		if v.Served {
			d.ServedVersions = append(d.ServedVersions, v.Name)
		}
	}

	switch {
	case len(d.StoredVersions) > 0:
		d.Version = d.StoredVersions[0]
	case len(d.ServedVersions) > 0:
		d.Version = d.ServedVersions[0]
	}

	for _, v := range crd.Spec.Versions {
		if v.Name != d.Version {
			continue
		}
		for _, col := range v.AdditionalPrinterColumns {
			d.PrinterColumns = append(d.PrinterColumns, PrinterColumn{
				Name:     col.Name,
				Type:     col.Type,
				JSONPath: col.JSONPath,
			})
		}
	}
	return d
}
