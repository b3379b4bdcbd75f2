package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imamik/edgeforge/cmd/edgeforge/handlers"
)

// bindExecFlags registers the flags shared by run and resume.
func bindExecFlags(flags *pflag.FlagSet, opts *handlers.ExecOptions) {
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: edgeforge.yaml)")
	flags.BoolVar(&opts.TUI, "tui", false, "Show a live dashboard when attached to a terminal")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log retry attempts and other debug output")
}

// Run returns the command that starts a deployment execution.
//
// Flags:
//
//	--event, -e: Trigger event as inline JSON, a file path, or - for stdin
//	--execution-id: Execution id (default: generated)
//	--model-package-group, --invocation-source, --model-arn,
//	--model-data-url, --packaged-artifact-uri: override the event
func Run() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy a model to the configured device",
		Long: `Start a deployment execution and wait until it succeeds, fails or is
interrupted.

The model comes from the trigger event or the flags. Without either, the
newest approved package of the configured model package group is deployed.

Every state is checkpointed. Interrupting the command (Ctrl+C) while the
execution waits for a job suspends it; continue it with 'edgeforge resume'.
The command exits non-zero when the execution fails.

Examples:
  # Deploy the latest approved model
  edgeforge run

  # Deploy from a build pipeline event
  edgeforge run --event '{"modelPackageGroupName":"defects","invocationSource":"CodeBuild"}'

  # Deploy an already packaged archive
  edgeforge run --packaged-artifact-uri s3://models/packaged/defects-4.tar.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	bindExecFlags(flags, &opts.ExecOptions)
	flags.StringVarP(&opts.Event, "event", "e", "", "Trigger event as inline JSON, a file path, or - for stdin")
	flags.StringVar(&opts.ExecutionID, "execution-id", "", "Execution id (default: generated)")
	flags.StringVar(&opts.ModelPackageGroupName, "model-package-group", "", "Model package group to deploy from")
	flags.StringVar(&opts.InvocationSource, "invocation-source", "", "Invocation source (CodeBuild deploys the latest approved model)")
	flags.StringVar(&opts.ModelArn, "model-arn", "", "Model package ARN to deploy")
	flags.StringVar(&opts.ModelDataURL, "model-data-url", "", "S3 URI of a model archive, bypassing the registry")
	flags.StringVar(&opts.PackagedArtifactURI, "packaged-artifact-uri", "", "S3 URI of a packaged model, skipping compilation and packaging")

	return cmd
}

// Resume returns the command that continues a suspended execution.
func Resume() *cobra.Command {
	var opts handlers.ExecOptions

	cmd := &cobra.Command{
		Use:   "resume <execution-id>",
		Short: "Resume a suspended or interrupted execution",
		Long: `Resume an execution at the state it was checkpointed in.

Jobs and deployments that were already submitted are not submitted again.
The deadline of the original run still applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Resume(cmd.Context(), args[0], opts)
		},
	}

	bindExecFlags(cmd.Flags(), &opts)

	return cmd
}
