// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the edgeforge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "edgeforge",
		Short:         "Deploy SageMaker models to Greengrass edge devices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Run())
	cmd.AddCommand(Resume())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
