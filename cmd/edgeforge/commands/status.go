package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/edgeforge/cmd/edgeforge/handlers"
)

// Status returns the command that shows execution checkpoints.
func Status() *cobra.Command {
	var (
		configPath string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "status [execution-id]",
		Short: "Show the status of executions",
		Long: `Show the checkpoint of an execution: its status, current state,
deadline and the results recorded so far. Without an id, all executions in
the checkpoint store are listed.

Examples:
  edgeforge status
  edgeforge status 2f0c6a8e-deploy -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return handlers.Status(cmd.Context(), configPath, id, output)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: edgeforge.yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputText, "Output format: text, json or yaml")

	return cmd
}
