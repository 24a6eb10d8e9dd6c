package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valgraph/valgraph/internal/workflow"
	"github.com/valgraph/valgraph/pkg/domain"
)

func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate [workflow]",
		Short: "Load and validate a workflow without executing it",
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
				os.Exit(domain.TerminalConfigError.ExitCode())
			}

			fmt.Printf("workflow %s is valid: %d nodes, %d edges, iteration cap %d\n",
				g.ID, len(g.Nodes), len(g.Edges), g.IterationCap)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a workflow document, bypassing the workflows directory")

	return cmd
}
