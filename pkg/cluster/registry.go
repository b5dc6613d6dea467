// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package cluster owns the per-context Kubernetes clients. A single Registry
// is built at startup and shared by reference; every call reports failures
// as errors and never panics on transport problems.
package cluster

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	corev1 "k8s.io/api/core/v1"
	apiextclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/confighub/cub-explorer/pkg/resource"
)

const (
	DefaultQPS          = 50
	DefaultBurst        = 100
	DefaultListTimeout  = 30 * time.Second
	unknownContextLabel = "unknown"
)

// LogOptions configures a pod log stream.
type LogOptions struct {
	SinceSeconds *int64
	TailLines    *int64
	Follow       bool
	Timestamps   bool
}

// Clients bundles the handles used for one kubeconfig context.
type Clients struct {
	Kube       kubernetes.Interface
	Dynamic    dynamic.Interface
	Extensions apiextclientset.Interface
}

// Factory builds the clients for a context name.
type Factory func(kubeContext string) (*Clients, error)

// Registry resolves a context name to its clients, creating them lazily.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Clients
	group   singleflight.Group

	contexts    []string
	current     string
	factory     Factory
	listTimeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithListTimeout bounds each list call. Log streams are not bounded.
func WithListTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.listTimeout = d
		}
	}
}

// WithFactory replaces the client factory.
func WithFactory(f Factory) Option {
	return func(r *Registry) {
		r.factory = f
	}
}

// NewRegistry loads the kubeconfig at path (or the default loading rules when
// empty) and selects contextOverride, falling back to the kubeconfig's
// current context.
func NewRegistry(kubeconfig, contextOverride string, opts ...Option) (*Registry, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}

	raw, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{},
	).RawConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	contexts := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		contexts = append(contexts, name)
	}

	current := raw.CurrentContext
	if contextOverride != "" {
		if _, ok := raw.Contexts[contextOverride]; !ok {
			return nil, fmt.Errorf("context %q does not exist in kubeconfig", contextOverride)
		}
		current = contextOverride
	}

	r := newRegistry(current, contexts, opts...)
	if r.factory == nil {
		r.factory = kubeconfigFactory(loadingRules)
	}
	return r, nil
}

// NewRegistryWithClients builds a registry over prebuilt clients, keyed by
// context name.
func NewRegistryWithClients(current string, clients map[string]*Clients, opts ...Option) *Registry {
	contexts := make([]string, 0, len(clients))
	for name := range clients {
		contexts = append(contexts, name)
	}
	r := newRegistry(current, contexts, opts...)
	for name, c := range clients {
		r.clients[name] = c
	}
	if r.factory == nil {
		r.factory = func(kubeContext string) (*Clients, error) {
			return nil, fmt.Errorf("context %q is not configured", kubeContext)
		}
	}
	return r
}

func newRegistry(current string, contexts []string, opts ...Option) *Registry {
	sort.Strings(contexts)
	r := &Registry{
		clients:     make(map[string]*Clients),
		contexts:    contexts,
		current:     current,
		listTimeout: DefaultListTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func kubeconfigFactory(loadingRules *clientcmd.ClientConfigLoadingRules) Factory {
	return func(kubeContext string) (*Clients, error) {
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules,
			&clientcmd.ConfigOverrides{CurrentContext: kubeContext},
		).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create rest config for context %q: %w", kubeContext, err)
		}
		restConfig.QPS = DefaultQPS
		restConfig.Burst = DefaultBurst

		kube, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create clientset: %w", err)
		}
		dyn, err := dynamic.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamic client: %w", err)
		}
		ext, err := apiextclientset.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create apiextensions clientset: %w", err)
		}
		return &Clients{Kube: kube, Dynamic: dyn, Extensions: ext}, nil
	}
}

// Contexts returns the known context names, sorted.
func (r *Registry) Contexts() []string {
	return append([]string(nil), r.contexts...)
}

// CurrentContext returns the selected context, or "unknown" if none is set.
func (r *Registry) CurrentContext() string {
	if r.current == "" {
		return unknownContextLabel
	}
	return r.current
}

// Clients returns the handles for a context, creating them on first use.
// An empty name resolves to the current context.
func (r *Registry) Clients(kubeContext string) (*Clients, error) {
	if kubeContext == "" {
		kubeContext = r.current
	}

	r.mu.RLock()
	c, ok := r.clients[kubeContext]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := r.group.Do(kubeContext, func() (interface{}, error) {
		r.mu.RLock()
		c, ok := r.clients[kubeContext]
		r.mu.RUnlock()
		if ok {
			return c, nil
		}

		c, err := r.factory(kubeContext)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.clients[kubeContext] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Clients), nil
}

// ListNamespaces returns namespace names, sorted.
func (r *Registry) ListNamespaces(ctx context.Context, kubeContext string) ([]string, error) {
	c, err := r.Clients(kubeContext)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	list, err := c.Kube.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces in %s: %w", kubeContext, err)
	}

	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ListCustomResourceDefinitions returns every CRD in the cluster, any scope.
func (r *Registry) ListCustomResourceDefinitions(ctx context.Context, kubeContext string) ([]resource.CustomResourceDefinition, error) {
	c, err := r.Clients(kubeContext)
	if err != nil {
		return nil, err
	}
	if c.Extensions == nil {
		return nil, fmt.Errorf("no apiextensions client for context %q", kubeContext)
	}

	ctx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	list, err := c.Extensions.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list CRDs: %w", err)
	}

	defs := make([]resource.CustomResourceDefinition, 0, len(list.Items))
	for i := range list.Items {
		defs = append(defs, resource.FromCRD(&list.Items[i]))
	}
	return defs, nil
}

// ListResources lists one kind in a namespace through the dynamic client.
func (r *Registry) ListResources(ctx context.Context, kubeContext, namespace string, gvr schema.GroupVersionResource) ([]unstructured.Unstructured, error) {
	c, err := r.Clients(kubeContext)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	list, err := c.Dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s in %s/%s: %w", gvr.Resource, kubeContext, namespace, err)
	}
	return list.Items, nil
}

// StreamLogs opens a log stream for one container. The caller closes it;
// cancelling ctx ends a follow stream.
func (r *Registry) StreamLogs(ctx context.Context, kubeContext, namespace, pod, container string, opts LogOptions) (io.ReadCloser, error) {
	c, err := r.Clients(kubeContext)
	if err != nil {
		return nil, err
	}

	logOpts := &corev1.PodLogOptions{
		Container:    container,
		Follow:       opts.Follow,
		Timestamps:   opts.Timestamps,
		SinceSeconds: opts.SinceSeconds,
		TailLines:    opts.TailLines,
	}

	stream, err := c.Kube.CoreV1().Pods(namespace).GetLogs(pod, logOpts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for pod %s/%s container %s: %w", namespace, pod, container, err)
	}
	return stream, nil
}
