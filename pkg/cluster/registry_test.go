// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package cluster_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"

	"github.com/confighub/cub-explorer/pkg/cluster"
	"github.com/confighub/cub-explorer/pkg/cluster/clustertest"
	"github.com/confighub/cub-explorer/pkg/resource"
)

func newTestRegistry() (*cluster.Registry, *clustertest.Fakes) {
	reg, fakes := clustertest.Registry("kind-dev", map[string]clustertest.Fixture{
		"kind-dev": {
			Namespaces: []string{"shop", "default", "kube-system"},
			CRDs: []*apiextv1.CustomResourceDefinition{
				clustertest.CRD("example.com", "Widget", "widgets", "v1", apiextv1.NamespaceScoped),
			},
			Objects: []*unstructured.Unstructured{
				clustertest.Pod("shop", "web-1", "pod-1", "", "app"),
				clustertest.Object("example.com/v1", "Widget", "shop", "w", "widget-1", ""),
			},
		},
		"kind-prod": {},
	})
	return reg, fakes["kind-dev"]
}

func TestRegistryContexts(t *testing.T) {
	reg, _ := newTestRegistry()
	assert.Equal(t, []string{"kind-dev", "kind-prod"}, reg.Contexts())
	assert.Equal(t, "kind-dev", reg.CurrentContext())

	empty := cluster.NewRegistryWithClients("", nil)
	assert.Equal(t, "unknown", empty.CurrentContext())
}

func TestListNamespacesSorted(t *testing.T) {
	reg, _ := newTestRegistry()
	names, err := reg.ListNamespaces(context.Background(), "kind-dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "kube-system", "shop"}, names)
}

func TestListNamespacesError(t *testing.T) {
	reg, fakes := newTestRegistry()
	fakes.Kube.PrependReactor("list", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})

	_, err := reg.ListNamespaces(context.Background(), "kind-dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestListResources(t *testing.T) {
	reg, _ := newTestRegistry()

	pods, err := reg.ListResources(context.Background(), "kind-dev", "shop", resource.BuiltinKinds[0].GVR)
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, "web-1", pods[0].GetName())

	defs, err := reg.ListCustomResourceDefinitions(context.Background(), "kind-dev")
	require.NoError(t, err)
	require.Len(t, defs, 1)

	widgets, err := reg.ListResources(context.Background(), "kind-dev", "shop", defs[0].GVR())
	require.NoError(t, err)
	require.Len(t, widgets, 1)
	assert.Equal(t, "Widget", widgets[0].GetKind())
}

func TestUnknownContext(t *testing.T) {
	reg, _ := newTestRegistry()
	_, err := reg.ListNamespaces(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestStreamLogs(t *testing.T) {
	reg, _ := newTestRegistry()
	tail := int64(10)
	stream, err := reg.StreamLogs(context.Background(), "kind-dev", "shop", "web-1", "app", cluster.LogOptions{
		TailLines:  &tail,
		Follow:     true,
		Timestamps: true,
	})
	require.NoError(t, err)
	defer stream.Close()

	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "fake logs", string(body))
}

func TestClientsCreatedOncePerContext(t *testing.T) {
	var calls atomic.Int32
	reg := cluster.NewRegistryWithClients("a", nil, cluster.WithFactory(func(string) (*cluster.Clients, error) {
		calls.Add(1)
		return clustertest.New(clustertest.Fixture{}).Clients(), nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Clients("a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := reg.Clients("")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewRegistryFromKubeconfig(t *testing.T) {
	kubeconfig := `apiVersion: v1
kind: Config
clusters:
- name: c1
  cluster:
    server: https://127.0.0.1:6443
users:
- name: u1
  user:
    token: abc
contexts:
- name: zeta
  context: {cluster: c1, user: u1}
- name: alpha
  context: {cluster: c1, user: u1}
current-context: zeta
`
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))

	reg, err := cluster.NewRegistry(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Contexts())
	assert.Equal(t, "zeta", reg.CurrentContext())

	reg, err = cluster.NewRegistry(path, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", reg.CurrentContext())

	_, err = cluster.NewRegistry(path, "nope")
	assert.Error(t, err)
}
