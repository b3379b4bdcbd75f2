package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/imamik/edgeforge/internal/config"
)

// Option is a selectable value with a short description.
type Option struct {
	Value       string
	Label       string
	Description string
}

// Regions contains AWS regions offering SageMaker Edge and Greengrass v2.
var Regions = []Option{
	{Value: "eu-west-1", Label: "eu-west-1", Description: "Ireland"},
	{Value: "eu-central-1", Label: "eu-central-1", Description: "Frankfurt"},
	{Value: "us-east-1", Label: "us-east-1", Description: "N. Virginia"},
	{Value: "us-west-2", Label: "us-west-2", Description: "Oregon"},
	{Value: "ap-northeast-1", Label: "ap-northeast-1", Description: "Tokyo"},
	{Value: "ap-southeast-2", Label: "ap-southeast-2", Description: "Sydney"},
}

// Frameworks contains the model frameworks accepted by the compiler.
var Frameworks = []Option{
	{Value: "MXNET", Label: "MXNet", Description: "Apache MXNet"},
	{Value: "PYTORCH", Label: "PyTorch", Description: "TorchScript models"},
	{Value: "TENSORFLOW", Label: "TensorFlow", Description: "SavedModel or frozen graph"},
	{Value: "TFLITE", Label: "TFLite", Description: "TensorFlow Lite"},
	{Value: "ONNX", Label: "ONNX", Description: "Open Neural Network Exchange"},
	{Value: "XGBOOST", Label: "XGBoost", Description: "Gradient boosted trees"},
}

// TargetArchitectures contains the supported device CPU architectures.
var TargetArchitectures = []Option{
	{Value: "X86_64", Label: "x86_64", Description: "64-bit Intel/AMD"},
	{Value: "ARM64", Label: "arm64", Description: "64-bit ARM (e.g. Jetson, Graviton)"},
	{Value: "ARM_EABIHF", Label: "armhf", Description: "32-bit ARM hard float (e.g. Raspberry Pi)"},
}

// PublishModes describes who registers the model component.
var PublishModes = []Option{
	{Value: string(config.PublishPreset), Label: "Preset", Description: "The packaging job registers the component"},
	{Value: string(config.PublishExplicit), Label: "Explicit", Description: "edgeforge publishes its own recipe"},
}

// CheckpointBackends describes where checkpoints are stored.
var CheckpointBackends = []Option{
	{Value: string(config.CheckpointFile), Label: "File", Description: "Local directory"},
	{Value: string(config.CheckpointS3), Label: "S3", Description: "Objects in a bucket"},
	{Value: string(config.CheckpointPostgres), Label: "Postgres", Description: "A checkpoints table"},
	{Value: string(config.CheckpointMemory), Label: "Memory", Description: "Lost on exit, no resume"},
}

// ToOptions converts options to huh options.
func ToOptions(opts []Option) []huh.Option[string] {
	out := make([]huh.Option[string], len(opts))
	for i, o := range opts {
		out[i] = huh.NewOption(o.Label+" - "+o.Description, o.Value)
	}
	return out
}
