package wizard

import (
	"strconv"
	"strings"

	"github.com/imamik/edgeforge/internal/config"
)

// BuildConfig creates a Config struct from the wizard result. Unanswered
// fields keep their zero value and are filled by ApplyDefaults on load.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := &config.Config{
		Region:                result.Region,
		RoleArn:               strings.TrimSpace(result.RoleArn),
		ModelPackageGroupName: strings.TrimSpace(result.ModelPackageGroupName),
		Output: config.Output{
			CompiledURI: strings.TrimSpace(result.CompiledURI),
			PackagedURI: strings.TrimSpace(result.PackagedURI),
		},
		Compilation: config.Compilation{
			Framework:  result.Framework,
			TargetArch: result.TargetArch,
		},
		Packaging: config.Packaging{
			PublishMode: config.PublishMode(result.PublishMode),
		},
		Device: config.Device{
			ThingName: strings.TrimSpace(result.ThingName),
		},
		Checkpoint: config.Checkpoint{
			Backend: config.CheckpointBackend(result.CheckpointBackend),
			Bucket:  result.CheckpointBucket,
			DSN:     result.CheckpointDSN,
		},
	}

	if n, err := strconv.Atoi(strings.TrimSpace(result.InferenceInterval)); err == nil && n > 0 {
		cfg.Components.Inference.InferenceIntervalSeconds = n
	}

	if result.EnableEdgeManager {
		cfg.Components.EdgeManager = &config.EdgeManager{
			DeviceFleetName: result.DeviceFleetName,
			BucketName:      result.EdgeBucketName,
		}
	}

	if result.RecordDeployedVersion {
		cfg.DeployedModelParameter = config.DefaultDeployedModelPath
	}

	return cfg
}
