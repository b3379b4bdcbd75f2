package config

// DefaultConfigFilename is the default configuration filename.
const DefaultConfigFilename = "edgeforge.yaml"

// Default Greengrass component names and versions.
const (
	DefaultNucleusComponent     = "aws.greengrass.Nucleus"
	DefaultNucleusVersion       = "2.5.6"
	DefaultCLIComponent         = "aws.greengrass.Cli"
	DefaultCLIVersion           = "2.5.6"
	DefaultEdgeManagerComponent = "aws.greengrass.SageMakerEdgeManager"
	DefaultEdgeManagerVersion   = "1.1.0"
	DefaultModelComponent       = "com.qualityinspection.model"
	DefaultInferenceComponent   = "com.qualityinspection"
)

// Compilation defaults.
const (
	DefaultFramework         = "MXNET"
	DefaultTargetOS          = "LINUX"
	DefaultTargetArch        = "X86_64"
	DefaultMaxRuntimeSeconds = 600
	DefaultModelName         = "quality-inspection-model-edgemanager"
	DefaultInferenceInterval = 4
	DefaultDeviceFleetName   = "devicefleet"
	DefaultCheckpointDir     = ".edgeforge/checkpoints"
	DefaultCheckpointPrefix  = "edgeforge/checkpoints"
	DefaultDeployedModelPath = "/deployed-model/version"
)

// DefaultInputShapes returns the input tensor shapes used when none are
// configured.
func DefaultInputShapes() map[string][]int {
	return map[string][]int{"data": {1, 3, 300, 450}}
}
