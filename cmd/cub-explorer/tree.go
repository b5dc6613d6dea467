// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/pkg/explorer"
)

var treeJSON bool

var treeCmd = &cobra.Command{
	Use:   "tree NAMESPACE",
	Short: "Print the ownership hierarchy of a namespace",
	Long: `Print the resources of a namespace arranged by ownership.

Each resource appears once, under the owner named by its first owner
reference. Resources whose owner is not in the namespace are roots.

Examples:
  # Deployment → ReplicaSet → Pod trees of the shop namespace
  cub-explorer tree shop

  # Same, from another context, as JSON
  cub-explorer tree shop --context staging --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output as JSON")
}

// treeEntry is the JSON form of a resource node.
type treeEntry struct {
	Kind     string       `json:"kind"`
	Name     string       `json:"name"`
	UID      string       `json:"uid"`
	Health   string       `json:"health,omitempty"`
	Manager  string       `json:"manager,omitempty"`
	Children []*treeEntry `json:"children,omitempty"`
}

func runTree(cmd *cobra.Command, args []string) error {
	namespace := args[0]

	a, err := newApp(cmd, "tree")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	kubeContext := a.registry.CurrentContext()
	tree := explorer.New([]string{kubeContext}, a.registry, a.fetcher, a.logger.Logger)

	root := tree.Roots[0]
	tree.Expand(ctx, root)
	if root.Err != nil {
		return fmt.Errorf("failed to list namespaces: %w", root.Err)
	}
	ns := tree.Find(root.ID + "/ns/" + namespace)
	if ns == nil {
		return clierr.WrapWithHint(
			fmt.Errorf("namespace %q not found in context %q", namespace, kubeContext),
			"namespaces are listed under each context in the dashboard")
	}
	tree.Expand(ctx, ns)
	if ns.Err != nil {
		return fmt.Errorf("failed to build hierarchy of %s: %w", namespace, ns.Err)
	}

	out := cmd.OutOrStdout()
	if treeJSON {
		entries := make([]*treeEntry, 0, len(ns.Children))
		for _, n := range ns.Children {
			entries = append(entries, toTreeEntry(n))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(ns.Children) == 0 {
		fmt.Fprintln(out, clierr.NothingFound(namespace))
		return nil
	}

	fmt.Fprintf(out, "%sOwnership Hierarchy%s %s/%s (%d roots)\n", colorBold, colorReset, kubeContext, namespace, len(ns.Children))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	printTree(out, ns.Children, "")
	return nil
}

func toTreeEntry(n *explorer.Node) *treeEntry {
	e := &treeEntry{Kind: n.ResourceKind(), Name: n.Name, Health: n.Health()}
	if n.Resource != nil {
		e.UID = n.Resource.UID
		e.Manager = n.Resource.Manager.String()
	}
	for _, c := range n.Children {
		e.Children = append(e.Children, toTreeEntry(c))
	}
	return e
}

func printTree(out io.Writer, nodes []*explorer.Node, prefix string) {
	for i, n := range nodes {
		connector, indent := "├──", "│   "
		if i == len(nodes)-1 {
			connector, indent = "└──", "    "
		}
		line := fmt.Sprintf("%s%s %s %s", prefix, connector, n.ResourceKind(), n.Name)
		if h := n.Health(); h != "" {
			line += fmt.Sprintf(" [%s%s%s]", healthColor(h), h, colorReset)
		}
		if n.Resource != nil && n.Resource.Manager.Type != "" && n.Resource.Manager.Type != "unknown" {
			line += " " + colorDim + n.Resource.Manager.String() + colorReset
		}
		fmt.Fprintln(out, line)
		printTree(out, n.Children, prefix+indent)
	}
}
