package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/edgeforge/cmd/edgeforge/handlers"
)

// Init returns the command for interactively creating a deployment configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "edgeforge.yaml")
//	--full, -f: Output full YAML with all options (default: minimal output)
func Init() *cobra.Command {
	var (
		outputPath string
		fullOutput bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a deployment configuration",
		Long: `Interactively create a deployment configuration file.

The wizard asks about:

  - AWS region and the SageMaker execution role
  - The model package group and compilation target
  - S3 locations for compiled and packaged models
  - The Greengrass core device and how the model component is published
  - The optional edge manager agent
  - Where execution checkpoints are stored

Use --full to write every option with its default value.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, fullOutput)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "edgeforge.yaml", "Output file path")
	cmd.Flags().BoolVarP(&fullOutput, "full", "f", false, "Output full YAML with all options")

	return cmd
}
