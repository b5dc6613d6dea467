// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clustertest builds registries backed by client-go fakes.
package clustertest

import (
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/confighub/cub-explorer/pkg/cluster"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// Fakes exposes the underlying fake clients so tests can add reactors.
type Fakes struct {
	Kube       *fake.Clientset
	Dynamic    *dynamicfake.FakeDynamicClient
	Extensions *apiextfake.Clientset
}

// Clients adapts the fakes to cluster.Clients.
func (f *Fakes) Clients() *cluster.Clients {
	return &cluster.Clients{Kube: f.Kube, Dynamic: f.Dynamic, Extensions: f.Extensions}
}

// Fixture describes the cluster state of one fake context.
type Fixture struct {
	Namespaces []string
	CRDs       []*apiextv1.CustomResourceDefinition
	Objects    []*unstructured.Unstructured
}

// New builds fakes for a fixture. Every builtin kind and every CRD's active
// version is registered for listing.
func New(fx Fixture) *Fakes {
	var typed []runtime.Object
	for _, ns := range fx.Namespaces {
		typed = append(typed, &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: ns}})
	}

	var crds []runtime.Object
	listKinds := map[schema.GroupVersionResource]string{}
	for _, k := range resource.BuiltinKinds {
		listKinds[k.GVR] = k.Name + "List"
	}
	for _, crd := range fx.CRDs {
		crds = append(crds, crd)
		def := resource.FromCRD(crd)
		if def.Version != "" {
			listKinds[def.GVR()] = def.Kind + "List"
		}
	}

	var objs []runtime.Object
	for _, o := range fx.Objects {
		objs = append(objs, o)
	}

	return &Fakes{
		Kube:       fake.NewSimpleClientset(typed...),
		Dynamic:    dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds, objs...),
		Extensions: apiextfake.NewSimpleClientset(crds...),
	}
}

// Registry builds a registry with one fake per context.
func Registry(current string, fixtures map[string]Fixture) (*cluster.Registry, map[string]*Fakes) {
	fakes := make(map[string]*Fakes, len(fixtures))
	clients := make(map[string]*cluster.Clients, len(fixtures))
	for name, fx := range fixtures {
		f := New(fx)
		fakes[name] = f
		clients[name] = f.Clients()
	}
	return cluster.NewRegistryWithClients(current, clients), fakes
}

// Object builds an unstructured object. owner may be empty.
func Object(apiVersion, kind, namespace, name, uid, owner string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	obj.SetUID(types.UID(uid))
	if owner != "" {
		obj.SetOwnerReferences([]metav1.OwnerReference{{
			APIVersion: "v1",
			Kind:       "Owner",
			Name:       owner,
			UID:        types.UID(owner),
		}})
	}
	return obj
}

// Pod builds a pod with the given containers.
func Pod(namespace, name, uid, owner string, containers ...string) *unstructured.Unstructured {
	obj := Object("v1", "Pod", namespace, name, uid, owner)
	items := make([]interface{}, 0, len(containers))
	for _, c := range containers {
		items = append(items, map[string]interface{}{"name": c})
	}
	_ = unstructured.SetNestedSlice(obj.Object, items, "spec", "containers")
	return obj
}

// CRD builds a custom resource definition with a single stored version.
func CRD(group, kind, plural, version string, scope apiextv1.ResourceScope) *apiextv1.CustomResourceDefinition {
	return &apiextv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: plural + "." + group},
		Spec: apiextv1.CustomResourceDefinitionSpec{
			Group: group,
			Names: apiextv1.CustomResourceDefinitionNames{Kind: kind, Plural: plural},
			Scope: scope,
			Versions: []apiextv1.CustomResourceDefinitionVersion{
				{Name: version, Served: true, Storage: true},
			},
		},
		Status: apiextv1.CustomResourceDefinitionStatus{StoredVersions: []string{version}},
	}
}
