// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package explorer is the lazy context -> namespace -> ownership tree behind
// the dashboard. The tree is not safe for concurrent use: it is mutated only
// from the UI loop, and the fetches it hands out through Load run elsewhere
// and report back through Apply.
package explorer

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/pkg/hierarchy"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// NamespaceLister lists the namespaces of a context.
type NamespaceLister interface {
	ListNamespaces(ctx context.Context, kubeContext string) ([]string, error)
}

// ResourceFetcher returns every resource of a namespace, absorbing failures.
type ResourceFetcher interface {
	FetchNamespaceResources(ctx context.Context, kubeContext, namespace string) []resource.Resource
}

// Load performs a node's fetch. It must not touch the tree.
type Load func(ctx context.Context) Result

// Result is the outcome of a Load, handed to Tree.Apply.
type Result struct {
	Node       *Node
	Namespaces []string
	Resources  []resource.Resource
	Forest     hierarchy.Forest
	Err        error
}

// Tree holds the explorer nodes.
type Tree struct {
	Roots []*Node

	byID       map[string]*Node
	namespaces NamespaceLister
	fetcher    ResourceFetcher
	logger     *zap.Logger
}

// New creates one unloaded node per context, in the given order.
func New(contexts []string, namespaces NamespaceLister, fetcher ResourceFetcher, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tree{
		byID:       make(map[string]*Node),
		namespaces: namespaces,
		fetcher:    fetcher,
		logger:     logger,
	}
	for _, c := range contexts {
		n := &Node{
			ID:      contextID(c),
			Name:    c,
			Kind:    KindContext,
			Context: c,
		}
		t.Roots = append(t.Roots, n)
		t.byID[n.ID] = n
	}
	return t
}

func contextID(c string) string { return "ctx/" + c }

func namespaceID(c, ns string) string { return contextID(c) + "/ns/" + ns }

// Find returns the attached node with the given ID.
func (t *Tree) Find(id string) *Node {
	return t.byID[id]
}

// Select is the primary action on a node. An unloaded context or namespace
// moves to Loading and its fetch is returned; a loaded node with children
// toggles its expansion. Every other case returns nil.
func (t *Tree) Select(n *Node) Load {
	if n == nil {
		return nil
	}
	switch n.State {
	case Loading:
		return nil
	case Loaded:
		if len(n.Children) > 0 {
			n.Expanded = !n.Expanded
		}
		return nil
	}

	switch n.Kind {
	case KindContext:
		n.State = Loading
		kubeContext := n.Context
		return func(ctx context.Context) Result {
			names, err := t.namespaces.ListNamespaces(ctx, kubeContext)
			return Result{Node: n, Namespaces: names, Err: err}
		}
	case KindNamespace:
		n.State = Loading
		kubeContext, namespace := n.Context, n.Name
		return func(ctx context.Context) Result {
			resources := t.fetcher.FetchNamespaceResources(ctx, kubeContext, namespace)
			forest, err := hierarchy.Build(resources)
			return Result{Node: n, Resources: resources, Forest: forest, Err: err}
		}
	}
	return nil
}

// Apply attaches a load result. Results for nodes that are no longer
// loading, or no longer attached, are dropped.
func (t *Tree) Apply(res Result) {
	n := res.Node
	if n == nil || n.State != Loading || t.byID[n.ID] != n {
		return
	}

	n.State = Loaded
	n.Expanded = true
	n.Err = res.Err
	t.detachChildren(n)

	if res.Err != nil {
		t.logger.Warn("load failed",
			zap.String("node", n.ID),
			zap.String("class", clierr.ClassifyError(res.Err)),
			zap.Error(res.Err))
		return
	}

	switch n.Kind {
	case KindContext:
		names := append([]string(nil), res.Namespaces...)
		sort.Strings(names)
		for _, ns := range names {
			t.attach(n, &Node{
				ID:        namespaceID(n.Context, ns),
				Name:      ns,
				Kind:      KindNamespace,
				Context:   n.Context,
				Namespace: ns,
			})
		}
	case KindNamespace:
		t.attachForest(n, res.Resources, res.Forest)
	}

	t.logger.Debug("node loaded", zap.String("node", n.ID), zap.Int("children", len(n.Children)))
}

// Open is Select without the collapse: a loaded node is expanded, an unloaded
// one starts loading.
func (t *Tree) Open(n *Node) Load {
	if n != nil && n.State == Loaded {
		if len(n.Children) > 0 {
			n.Expanded = true
		}
		return nil
	}
	return t.Select(n)
}

// Expand loads n synchronously if needed and expands it.
func (t *Tree) Expand(ctx context.Context, n *Node) {
	if load := t.Open(n); load != nil {
		t.Apply(load(ctx))
	}
}

// Refresh drops the children of n, or of its namespace when n is a resource,
// and starts a new fetch.
func (t *Tree) Refresh(n *Node) Load {
	if n == nil {
		return nil
	}
	if n.Kind == KindResource {
		n = n.NamespaceNode()
		if n == nil {
			return nil
		}
	}
	if n.State == Loading {
		return nil
	}
	t.detachChildren(n)
	n.State = Unloaded
	n.Expanded = false
	n.Err = nil
	return t.Select(n)
}

// Visible flattens the expanded part of the tree depth-first.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n)
			if n.Expanded {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
	return out
}

func (t *Tree) attach(parent, child *Node) {
	child.Parent = parent
	parent.Children = append(parent.Children, child)
	t.byID[child.ID] = child
}

func (t *Tree) detachChildren(n *Node) {
	var drop func([]*Node)
	drop = func(nodes []*Node) {
		for _, c := range nodes {
			delete(t.byID, c.ID)
			drop(c.Children)
		}
	}
	drop(n.Children)
	n.Children = nil
}

func (t *Tree) attachForest(ns *Node, resources []resource.Resource, forest hierarchy.Forest) {
	byUID := make(map[string]*resource.Resource, len(resources))
	for i := range resources {
		r := &resources[i]
		if _, ok := byUID[r.UID]; !ok {
			byUID[r.UID] = r
		}
	}

	var build func(parent *Node, sub hierarchy.Forest)
	build = func(parent *Node, sub hierarchy.Forest) {
		var nodes []*Node
		for _, uid := range sub.Roots() {
			r, ok := byUID[uid]
			if !ok {
				continue
			}
			n := &Node{
				ID:        ns.ID + "/" + uid,
				Name:      r.Name,
				Kind:      KindResource,
				Context:   ns.Context,
				Namespace: ns.Name,
				Resource:  r,
				State:     Loaded,
			}
			nodes = append(nodes, n)
			build(n, sub[uid])
		}
		sortSiblings(nodes)
		for _, n := range nodes {
			t.attach(parent, n)
		}
	}
	build(ns, forest)
}

func sortSiblings(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.ResourceKind() != b.ResourceKind() {
			return a.ResourceKind() < b.ResourceKind()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
