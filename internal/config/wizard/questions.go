package wizard

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/platform/s3"
)

var roleArnRegex = regexp.MustCompile(`^arn:aws[a-z-]*:iam::\d{12}:role/.+$`)

// runAWSGroup prompts for the region and the SageMaker execution role.
func runAWSGroup(ctx context.Context, result *WizardResult) error {
	result.Region = Regions[0].Value

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Description("AWS region of the model registry and the device").
				Options(ToOptions(Regions)...).
				Value(&result.Region),
			huh.NewInput().
				Title("Execution Role").
				Description("IAM role assumed by compilation and packaging jobs").
				Placeholder("arn:aws:iam::123456789012:role/edge-deployment").
				Value(&result.RoleArn).
				Validate(validateRoleArn),
		).Title("AWS"),
	).RunWithContext(ctx)
}

// runModelGroup prompts for the model source and compilation target.
func runModelGroup(ctx context.Context, result *WizardResult) error {
	result.Framework = config.DefaultFramework
	result.TargetArch = config.DefaultTargetArch

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model Package Group").
				Description("Registry group searched for the latest approved model").
				Placeholder("quality-inspection").
				Value(&result.ModelPackageGroupName).
				Validate(validateRequired),
			huh.NewSelect[string]().
				Title("Framework").
				Options(ToOptions(Frameworks)...).
				Value(&result.Framework),
			huh.NewSelect[string]().
				Title("Target Architecture").
				Description("CPU architecture of the edge device").
				Options(ToOptions(TargetArchitectures)...).
				Value(&result.TargetArch),
		).Title("Model"),
	).RunWithContext(ctx)
}

// runOutputGroup prompts for the artifact locations.
func runOutputGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Compiled Models").
				Description("S3 prefix compilation jobs write to").
				Placeholder("s3://my-bucket/compiled").
				Value(&result.CompiledURI).
				Validate(validateS3URI),
			huh.NewInput().
				Title("Packaged Models").
				Description("S3 prefix packaging jobs write to").
				Placeholder("s3://my-bucket/packaged").
				Value(&result.PackagedURI).
				Validate(validateS3URI),
		).Title("Artifacts"),
	).RunWithContext(ctx)
}

// runDeviceGroup prompts for the deployment target and component options.
func runDeviceGroup(ctx context.Context, result *WizardResult) error {
	result.PublishMode = string(config.PublishPreset)
	result.InferenceInterval = strconv.Itoa(config.DefaultInferenceInterval)
	result.RecordDeployedVersion = true

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Thing Name").
				Description("IoT thing of the Greengrass core device").
				Placeholder("EdgeThing").
				Value(&result.ThingName).
				Validate(validateRequired),
			huh.NewSelect[string]().
				Title("Component Publishing").
				Options(ToOptions(PublishModes)...).
				Value(&result.PublishMode),
			huh.NewInput().
				Title("Inference Interval").
				Description("Seconds between two inference runs on the device").
				Value(&result.InferenceInterval).
				Validate(validateInterval),
			huh.NewConfirm().
				Title("Record Deployed Version?").
				Description("Write the model version to "+config.DefaultDeployedModelPath+" after a deployment").
				Value(&result.RecordDeployedVersion),
		).Title("Device"),
	).RunWithContext(ctx)
}

// runEdgeManagerGroup prompts for the optional edge manager agent.
func runEdgeManagerGroup(ctx context.Context, result *WizardResult) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Deploy Edge Manager Agent?").
				Description("Adds " + config.DefaultEdgeManagerComponent + " to the deployment").
				Value(&result.EnableEdgeManager),
		).Title("Edge Manager"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	if !result.EnableEdgeManager {
		return nil
	}

	result.DeviceFleetName = config.DefaultDeviceFleetName
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device Fleet").
				Value(&result.DeviceFleetName).
				Validate(validateRequired),
			huh.NewInput().
				Title("Data Bucket").
				Description("Bucket the agent uploads captured data to").
				Value(&result.EdgeBucketName).
				Validate(validateRequired),
		).Title("Edge Manager"),
	).RunWithContext(ctx)
}

// runCheckpointGroup prompts for the checkpoint store.
func runCheckpointGroup(ctx context.Context, result *WizardResult) error {
	result.CheckpointBackend = string(config.CheckpointFile)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Checkpoint Store").
				Description("Where executions are persisted between polls").
				Options(ToOptions(CheckpointBackends)...).
				Value(&result.CheckpointBackend),
		).Title("Checkpoints"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	switch config.CheckpointBackend(result.CheckpointBackend) {
	case config.CheckpointS3:
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Checkpoint Bucket").
					Value(&result.CheckpointBucket).
					Validate(validateRequired),
			).Title("Checkpoints"),
		).RunWithContext(ctx)
	case config.CheckpointPostgres:
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Postgres DSN (Optional)").
					Description("Leave empty to read " + config.CheckpointDSNEnv + " at runtime").
					Placeholder("postgres://user@host:5432/edgeforge").
					Value(&result.CheckpointDSN),
			).Title("Checkpoints"),
		).RunWithContext(ctx)
	}
	return nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
}

func validateRoleArn(s string) error {
	if !roleArnRegex.MatchString(strings.TrimSpace(s)) {
		return errRoleArnInvalid
	}
	return nil
}

func validateS3URI(s string) error {
	if _, _, err := s3.ParseURI(strings.TrimSpace(s)); err != nil {
		return errS3URIInvalid
	}
	return nil
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errIntervalInvalid
	}
	return nil
}
