// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package explorer

import "strings"

// LabelKey is everything a rendered tree label depends on.
type LabelKey struct {
	Kind         NodeKind
	ResourceKind string
	Name         string
	Health       string
	HasChildren  bool
	Expanded     bool
	Loading      bool
	Failed       bool
	IsCursor     bool
	IsHovered    bool
	HasFocus     bool
}

// KeyFor derives the label key of n.
func KeyFor(n *Node, isCursor, isHovered, hasFocus bool) LabelKey {
	return LabelKey{
		Kind:         n.Kind,
		ResourceKind: n.ResourceKind(),
		Name:         n.Name,
		Health:       n.Health(),
		HasChildren:  n.Expandable(),
		Expanded:     n.Expanded,
		Loading:      n.State == Loading,
		Failed:       n.Err != nil,
		IsCursor:     isCursor,
		IsHovered:    isHovered,
		HasFocus:     hasFocus,
	}
}

// Renderer turns a key into a label. It must be pure.
type Renderer func(LabelKey) string

// LabelCache memoizes a Renderer by key. Call Invalidate when the renderer's
// inputs outside the key change, such as the theme or terminal width.
type LabelCache struct {
	render Renderer
	labels map[LabelKey]string
}

func NewLabelCache(render Renderer) *LabelCache {
	return &LabelCache{render: render, labels: make(map[LabelKey]string)}
}

// Label returns the cached label, rendering it on first use.
func (c *LabelCache) Label(key LabelKey) string {
	if s, ok := c.labels[key]; ok {
		return s
	}
	s := c.render(key)
	c.labels[key] = s
	return s
}

// Invalidate drops every cached label.
func (c *LabelCache) Invalidate() {
	clear(c.labels)
}

func (c *LabelCache) Len() int {
	return len(c.labels)
}

// PlainRenderer renders labels without styling, for non-interactive output.
func PlainRenderer(k LabelKey) string {
	var b strings.Builder
	switch {
	case k.Loading:
		b.WriteString("… ")
	case k.HasChildren && k.Expanded:
		b.WriteString("▼ ")
	case k.HasChildren:
		b.WriteString("▶ ")
	default:
		b.WriteString("  ")
	}
	if k.Kind == KindResource {
		b.WriteString(k.ResourceKind)
		b.WriteString("/")
	}
	b.WriteString(k.Name)
	if k.Health != "" {
		b.WriteString(" [" + k.Health + "]")
	}
	if k.Failed {
		b.WriteString(" ✗")
	}
	return b.String()
}
