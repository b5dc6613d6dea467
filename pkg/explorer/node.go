// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package explorer

import (
	"github.com/confighub/cub-explorer/pkg/resource"
)

// NodeKind is the level of a node in the tree.
type NodeKind int

const (
	KindContext NodeKind = iota
	KindNamespace
	KindResource
)

func (k NodeKind) String() string {
	switch k {
	case KindContext:
		return "context"
	case KindNamespace:
		return "namespace"
	case KindResource:
		return "resource"
	}
	return "unknown"
}

// State is the load state of a node.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return "unknown"
}

// Node is one row of the explorer tree.
type Node struct {
	ID        string
	Name      string
	Kind      NodeKind
	Context   string
	Namespace string
	// Resource is set for KindResource nodes only.
	Resource *resource.Resource

	Parent   *Node
	Children []*Node

	State    State
	Expanded bool
	// Err is the error of the last load, kept for display.
	Err error
}

// Depth is 0 for context nodes.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Expandable reports whether selecting the node can reveal children.
func (n *Node) Expandable() bool {
	if n.State != Loaded {
		return n.Kind != KindResource
	}
	return len(n.Children) > 0
}

// ResourceKind returns the resource kind, or "" for context and namespace nodes.
func (n *Node) ResourceKind() string {
	if n.Resource == nil {
		return ""
	}
	return n.Resource.Kind
}

// Health returns the resource health, or "" for context and namespace nodes.
func (n *Node) Health() string {
	if n.Resource == nil {
		return ""
	}
	return n.Resource.Health
}

// NamespaceNode returns the closest namespace ancestor, or nil.
func (n *Node) NamespaceNode() *Node {
	for p := n; p != nil; p = p.Parent {
		if p.Kind == KindNamespace {
			return p
		}
	}
	return nil
}

// Path lists names from the context down to n.
func (n *Node) Path() []string {
	var path []string
	for p := n; p != nil; p = p.Parent {
		path = append([]string{p.Name}, path...)
	}
	return path
}
