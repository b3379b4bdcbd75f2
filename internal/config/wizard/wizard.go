package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	// AWS
	Region  string
	RoleArn string

	// Model source
	ModelPackageGroupName string
	Framework             string
	TargetArch            string

	// Artifact locations
	CompiledURI string
	PackagedURI string

	// Deployment target
	ThingName   string
	PublishMode string

	// Edge manager agent (optional)
	EnableEdgeManager bool
	DeviceFleetName   string
	EdgeBucketName    string

	InferenceInterval string

	// Checkpoints
	CheckpointBackend string
	CheckpointBucket  string
	CheckpointDSN     string

	RecordDeployedVersion bool
}

// RunWizard runs the interactive configuration wizard.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{}

	if err := runAWSGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("aws: %w", err)
	}

	if err := runModelGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	if err := runOutputGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	if err := runDeviceGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	if err := runEdgeManagerGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("edge manager: %w", err)
	}

	if err := runCheckpointGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	return result, nil
}
