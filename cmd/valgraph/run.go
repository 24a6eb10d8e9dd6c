package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/scheduler"
	"github.com/valgraph/valgraph/internal/workflow"
	eventmemory "github.com/valgraph/valgraph/pkg/adapters/events/memory"
	"github.com/valgraph/valgraph/pkg/adapters/metrics/noop"
	storagememory "github.com/valgraph/valgraph/pkg/adapters/storage/memory"
	"github.com/valgraph/valgraph/pkg/domain"
)

func newRunCmd() *cobra.Command {
	var (
		file   string
		seed   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run [workflow]",
		Short: "Execute a workflow to termination and exit with its terminal reason",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			loader := workflow.NewLoader(cfg.WorkflowsDir, cfg.Scheduler.DefaultIterationCap)

			var (
				g   *domain.Graph
				err error
			)
			switch {
			case file != "":
				g, err = loader.LoadFile(file)
			case len(args) == 1:
				g, err = loader.Load(args[0])
			default:
				fmt.Fprintln(os.Stderr, "Error: a workflow name or --file is required")
				os.Exit(1)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				var cfgErr *domain.ConfigurationError
				if errors.As(err, &cfgErr) {
					os.Exit(domain.TerminalConfigError.ExitCode())
				}
				os.Exit(1)
			}

			generators, err := buildGenerators()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			metrics := noop.NewCollector()
			sched := scheduler.New(
				buildRegistry(generators, metrics),
				workflow.NewEvaluator(logger),
				storagememory.NewRunStore(),
				eventmemory.NewEventBus(),
				metrics,
				logger,
				cfg.Timeouts.NodeTimeout,
			)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.RunTimeout)
			defer cancel()

			state := sched.Run(ctx, g, seed)

			if err := writeRecord(state, output); err != nil {
				logger.Error("failed to write run record", zap.Error(err))
			}

			_ = logger.Sync()
			os.Exit(state.TerminalReason.ExitCode())
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a workflow document, bypassing the workflows directory")
	cmd.Flags().StringVar(&seed, "seed", "", "seed context passed to the start nodes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the full run record to this file instead of stdout")

	return cmd
}

// writeRecord emits the full run record as JSON, to stdout by default.
func writeRecord(state *domain.RunState, path string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
