// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command cub-explorer is a terminal dashboard for browsing cluster
// resources, their ownership and their logs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/internal/config"
	"github.com/confighub/cub-explorer/pkg/manifest"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "cub-explorer",
	Short: "Explore cluster resources, ownership and logs",
	Long: `cub-explorer - explore cluster resources, ownership and logs

Browse contexts, namespaces and the resources in them, arranged by
ownership (Deployment → ReplicaSet → Pod). Selecting a resource shows its
manifest as YAML or JSON, or the merged logs of every container of a pod.

Configuration is read from flags, CUB_EXPLORER_* environment variables and
$HOME/.config/cub-explorer/config.yaml, in that order of precedence.

Environment Variables:
  KUBECONFIG                 Path to kubeconfig file (default: ~/.kube/config)
  CUB_EXPLORER_CONTEXT       Context to open first
  CUB_EXPLORER_WORKERS       Concurrent list queries per namespace (default: 8)
  CUB_EXPLORER_METRICS_ADDR  Serve Prometheus metrics on this address
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runExplore,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, clierr.Pretty(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("kubeconfig", "", "Path to kubeconfig file")
	flags.String("context", "", "Kubeconfig context to open first")
	flags.StringVar(&configFile, "config", "", "Config file (default $HOME/.config/cub-explorer/config.yaml)")
	flags.String("log-dir", "", "Directory for log files (default .confighub/logs)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.Int("workers", config.DefaultWorkers, "Concurrent list queries per namespace")
	flags.Duration("since", config.DefaultLogsSince, "Only show logs newer than this (0 for all)")
	flags.Int64("tail", config.DefaultLogsTail, "Lines of history per container (0 for all)")
	flags.Duration("interval", config.DefaultLogsInterval, "Log refresh interval")
	rootCmd.Flags().String("format", manifest.FormatYAML.String(), "Initial viewer format: yaml, json or logs")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cub-explorer version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for cub-explorer.

Bash:
  $ source <(cub-explorer completion bash)

Zsh:
  $ cub-explorer completion zsh > "${fpath[1]}/_cub-explorer"

Fish:
  $ cub-explorer completion fish | source

PowerShell:
  PS> cub-explorer completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}
