// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package resource holds the normalized model shared by discovery, the
// ownership hierarchy, the explorer tree and the log aggregator.
package resource

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Resource is one cluster object normalized at the discovery boundary.
type Resource struct {
	Name       string
	Kind       string
	APIVersion string
	Context    string
	Namespace  string
	UID        string
	// OwnerUID is the UID of the first owner reference, or empty.
	OwnerUID string

	Metadata map[string]interface{}
	Spec     map[string]interface{}
	Status   map[string]interface{}
	Raw      *unstructured.Unstructured

	Health  string
	Manager Manager
}

// Container is a pod container eligible for log streaming.
type Container struct {
	Name string
	Init bool
}

// FromUnstructured converts a listed object into a Resource. kind is used
// when the object carries no kind of its own, which happens for items of
// typed lists.
func FromUnstructured(kubeContext, kind string, obj *unstructured.Unstructured) Resource {
	if obj.GetKind() != "" {
		kind = obj.GetKind()
	}

	r := Resource{
		Name:       obj.GetName(),
		Kind:       kind,
		APIVersion: obj.GetAPIVersion(),
		Context:    kubeContext,
		Namespace:  obj.GetNamespace(),
		UID:        string(obj.GetUID()),
		Raw:        obj,
		Health:     DetectStatus(obj),
		Manager:    DetectManager(obj),
	}

	if refs := obj.GetOwnerReferences(); len(refs) > 0 {
		r.OwnerUID = string(refs[0].UID)
	}

	r.Metadata, _, _ = unstructured.NestedMap(obj.Object, "metadata")
	r.Spec, _, _ = unstructured.NestedMap(obj.Object, "spec")
	r.Status, _, _ = unstructured.NestedMap(obj.Object, "status")
	return r
}

// Key identifies the resource across contexts.
func (r Resource) Key() string {
	return r.Context + "/" + r.Namespace + "/" + r.Kind + "/" + r.Name + "/" + r.UID
}

// IsPod reports whether the resource is a core Pod.
func (r Resource) IsPod() bool {
	return r.Kind == "Pod"
}

// Containers lists init containers followed by regular containers.
func (r Resource) Containers() []Container {
	if r.Raw == nil {
		return nil
	}
	var out []Container
	for _, field := range []string{"initContainers", "containers"} {
		items, _, _ := unstructured.NestedSlice(r.Raw.Object, "spec", field)
		for _, item := range items {
			c, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := c["name"].(string)
			if name == "" {
				continue
			}
			out = append(out, Container{Name: name, Init: field == "initContainers"})
		}
	}
	return out
}

// Labels reads metadata.labels from the raw object; nil without one.
func (r Resource) Labels() map[string]string {
	if r.Raw == nil {
		return nil
	}
	return r.Raw.GetLabels()
}

// Annotations reads metadata.annotations from the raw object.
func (r Resource) Annotations() map[string]string {
	if r.Raw == nil {
		return nil
	}
	return r.Raw.GetAnnotations()
}
