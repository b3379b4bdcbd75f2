package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/edgeforge/cmd/edgeforge/handlers"
)

// Validate returns the command that checks a configuration and prints the
// deployment workflow.
func Validate() *cobra.Command {
	var (
		configPath string
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and show the workflow",
		Long: `Load and validate the configuration, then print the states of the
deployment workflow with their transitions and wait intervals.

Use --remote to also check that the device, the inference component, the
model package group and the checkpoint store are reachable with the current
AWS credentials.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), configPath, remote)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: edgeforge.yaml)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Check that AWS resources and the checkpoint store are reachable")

	return cmd
}
