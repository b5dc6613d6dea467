// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/pkg/logs"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// ANSI color codes for colorful output
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func healthColor(health string) string {
	switch health {
	case resource.StatusReady:
		return colorGreen
	case resource.StatusNotReady, resource.StatusPending:
		return colorYellow
	case resource.StatusFailed:
		return colorRed
	}
	return colorDim
}

var (
	logsNamespace string
	logsNoColor   bool
)

var logsCmd = &cobra.Command{
	Use:   "logs POD",
	Short: "Stream the merged logs of every container of a pod",
	Long: `Stream the logs of every container of a pod as one feed ordered by
timestamp. Init containers are included.

Lines are printed once per refresh interval, each batch sorted by time.
The command returns when every stream has ended, or on Ctrl-C.

Examples:
  cub-explorer logs web-7d9c-abcde -n shop
  cub-explorer logs web-7d9c-abcde -n shop --since 1h --tail 20
`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVarP(&logsNamespace, "namespace", "n", "default", "Namespace of the pod")
	logsCmd.Flags().BoolVar(&logsNoColor, "no-color", false, "Disable container colors")
}

func runLogs(cmd *cobra.Command, args []string) error {
	name := args[0]

	a, err := newApp(cmd, "logs")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	kubeContext := a.registry.CurrentContext()
	pod, err := findPod(cmd, a, kubeContext, logsNamespace, name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	agg := a.aggregator(logs.WithFlushHook(func(batch []logs.Event) {
		printEvents(out, batch, !logsNoColor)
	}))
	defer agg.Close()

	agg.Attach(ctx, pod)
	// Placeholders are published by Attach itself.
	if !pod.IsPod() || len(pod.Containers()) == 0 {
		printEvents(out, agg.Snapshot(), false)
		return nil
	}

	ticker := time.NewTicker(a.cfg.Logs.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			agg.Flush()
			return nil
		case <-ticker.C:
			agg.Flush()
			if agg.LiveTasks(pod.Key()) == 0 {
				agg.Flush()
				return nil
			}
		}
	}
}

func findPod(cmd *cobra.Command, a *app, kubeContext, namespace, name string) (resource.Resource, error) {
	podKind := resource.BuiltinKinds[0]
	items, err := a.registry.ListResources(cmd.Context(), kubeContext, namespace, podKind.GVR)
	if err != nil {
		return resource.Resource{}, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}
	for i := range items {
		if items[i].GetName() == name {
			return resource.FromUnstructured(kubeContext, podKind.Name, &items[i]), nil
		}
	}
	return resource.Resource{}, clierr.WrapWithHint(
		fmt.Errorf("pod %q not found in namespace %q", name, namespace),
		fmt.Sprintf("run 'cub-explorer tree %s' to see its pods", namespace))
}

func printEvents(out io.Writer, events []logs.Event, color bool) {
	for _, ev := range events {
		line := logs.Format(ev)
		if color && ev.Container != "" {
			line = fmt.Sprintf("%s \033[38;5;%sm[%s]%s %s",
				ev.Timestamp.UTC().Format(time.RFC3339), ev.Color, ev.Container, colorReset, ev.Message)
		}
		fmt.Fprintln(out, line)
	}
}
