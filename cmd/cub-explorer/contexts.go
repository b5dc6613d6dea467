// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confighub/cub-explorer/internal/kubecontext"
)

var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "List kubeconfig contexts",
	Long: `List the kubeconfig contexts the explorer can open. The current
context is marked with * and listed first. Any context, or its short
cluster name, can be passed to --context.`,
	Args: cobra.NoArgs,
	RunE: runContexts,
}

func init() {
	rootCmd.AddCommand(contextsCmd)
}

func runContexts(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, "contexts")
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	current := a.registry.CurrentContext()
	for _, c := range kubecontext.Order(a.registry.Contexts(), current) {
		marker := " "
		if c == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-20s %s\n", marker, kubecontext.DisplayName(c), c)
	}
	return nil
}
