// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package kubecontext names and orders kubeconfig contexts for display.
package kubecontext

import (
	"sort"
	"strings"
)

// DisplayName shortens provider-generated context names to the cluster name.
// EKS ARNs, GKE triples and kind prefixes are recognized; anything else is
// returned unchanged.
func DisplayName(contextName string) string {
	if contextName == "" || contextName == "unknown" {
		return contextName
	}

	// arn:aws:eks:region:account:cluster/name
	if strings.HasPrefix(contextName, "arn:aws:eks:") {
		if idx := strings.LastIndex(contextName, "/"); idx != -1 {
			return contextName[idx+1:]
		}
	}

	// gke_project_zone_cluster
	if strings.HasPrefix(contextName, "gke_") {
		parts := strings.Split(contextName, "_")
		if len(parts) >= 4 {
			return parts[len(parts)-1]
		}
	}

	if name, ok := strings.CutPrefix(contextName, "kind-"); ok && name != "" {
		return name
	}
	return contextName
}

// Order sorts contexts by name with current first. The input is not
// modified.
func Order(contexts []string, current string) []string {
	out := make([]string, len(contexts))
	copy(out, contexts)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i] == current) != (out[j] == current) {
			return out[i] == current
		}
		return out[i] < out[j]
	})
	return out
}

// Match resolves a user-supplied name against contexts. An exact context
// name wins; otherwise a unique display name or a unique case-insensitive
// substring match is accepted.
func Match(contexts []string, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, c := range contexts {
		if c == name {
			return c, true
		}
	}

	var byDisplay, bySubstring []string
	lower := strings.ToLower(name)
	for _, c := range contexts {
		if DisplayName(c) == name {
			byDisplay = append(byDisplay, c)
		}
		if strings.Contains(strings.ToLower(c), lower) {
			bySubstring = append(bySubstring, c)
		}
	}
	if len(byDisplay) == 1 {
		return byDisplay[0], true
	}
	if len(byDisplay) == 0 && len(bySubstring) == 1 {
		return bySubstring[0], true
	}
	return "", false
}
