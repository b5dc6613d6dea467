// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package hierarchy turns a flat snapshot of resources into an ownership
// forest keyed by UID.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/confighub/cub-explorer/pkg/resource"
)

// ErrCycle reports ownership data that does not form a forest.
var ErrCycle = errors.New("ownership graph contains a cycle")

// root is the parent key for resources with no resolvable owner.
const root = ""

// Forest maps each UID to the subtree of resources it owns. Leaves map to an
// empty Forest.
type Forest map[string]Forest

// Build groups resources by owner. Owners missing from the snapshot make
// their dependents roots. Resources without a UID are ignored and repeated
// UIDs keep the first occurrence.
func Build(resources []resource.Resource) (Forest, error) {
	owner := make(map[string]string, len(resources))
	for _, r := range resources {
		if r.UID == "" {
			continue
		}
		if _, seen := owner[r.UID]; seen {
			continue
		}
		owner[r.UID] = r.OwnerUID
	}

	children := make(map[string][]string, len(owner))
	for uid, parent := range owner {
		if _, ok := owner[parent]; !ok {
			parent = root
		}
		children[parent] = append(children[parent], uid)
	}

	visited := make(map[string]bool, len(owner))
	forest, err := materialize(root, children, visited)
	if err != nil {
		return nil, err
	}
	if len(visited) != len(owner) {
		return nil, fmt.Errorf("%w: %d of %d resources unreachable from a root", ErrCycle, len(owner)-len(visited), len(owner))
	}
	return forest, nil
}

func materialize(parent string, children map[string][]string, visited map[string]bool) (Forest, error) {
	f := Forest{}
	for _, uid := range children[parent] {
		if visited[uid] {
			return nil, fmt.Errorf("%w: %s reached twice", ErrCycle, uid)
		}
		visited[uid] = true
		sub, err := materialize(uid, children, visited)
		if err != nil {
			return nil, err
		}
		f[uid] = sub
	}
	return f, nil
}

// UIDs lists every UID in the forest, sorted.
func (f Forest) UIDs() []string {
	var out []string
	var walk func(Forest)
	walk = func(sub Forest) {
		for uid, children := range sub {
			out = append(out, uid)
			walk(children)
		}
	}
	walk(f)
	sort.Strings(out)
	return out
}

// Len counts the nodes at every depth.
func (f Forest) Len() int {
	n := 0
	for _, children := range f {
		n += 1 + children.Len()
	}
	return n
}

// Roots lists the top-level UIDs, sorted.
func (f Forest) Roots() []string {
	out := make([]string, 0, len(f))
	for uid := range f {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
