package config

// Config is the configuration for edgeforge.
type Config struct {
	// Region is the AWS region all collaborators live in.
	Region string `yaml:"region"`

	// RoleArn is the IAM role SageMaker assumes for compilation and
	// packaging jobs.
	RoleArn string `yaml:"roleArn"`

	// ModelPackageGroupName is the registry group searched for approved
	// models when the trigger event does not name one.
	ModelPackageGroupName string `yaml:"modelPackageGroupName"`

	Output      Output      `yaml:"output"`
	Compilation Compilation `yaml:"compilation"`
	Packaging   Packaging   `yaml:"packaging"`
	Device      Device      `yaml:"device"`
	Components  Components  `yaml:"components"`
	Checkpoint  Checkpoint  `yaml:"checkpoint"`

	// DeployedModelParameter is the SSM parameter that receives the model
	// package version after a successful deployment. Empty disables it.
	DeployedModelParameter string `yaml:"deployedModelParameter,omitempty"`

	// Tags are added to every job, component version and deployment an
	// execution creates.
	Tags map[string]string `yaml:"tags,omitempty"`
}

// Output holds the S3 locations jobs write their artifacts to.
type Output struct {
	CompiledURI string `yaml:"compiledUri"`
	PackagedURI string `yaml:"packagedUri"`
}

// Compilation describes the compilation target.
type Compilation struct {
	Framework         string           `yaml:"framework"`
	InputShapes       map[string][]int `yaml:"inputShapes,omitempty"`
	TargetOS          string           `yaml:"targetOs"`
	TargetArch        string           `yaml:"targetArch"`
	MaxRuntimeSeconds int32            `yaml:"maxRuntimeSeconds"`
}

// PublishMode selects who registers the model component version.
type PublishMode string

const (
	// PublishPreset lets the packaging job register the component itself.
	PublishPreset PublishMode = "preset"
	// PublishExplicit packages a plain archive and registers the component
	// with an edgeforge-generated recipe.
	PublishExplicit PublishMode = "explicit"
)

// ValidPublishModes returns all valid publish modes.
func ValidPublishModes() []PublishMode {
	return []PublishMode{PublishPreset, PublishExplicit}
}

// IsValid returns true if the publish mode is known.
func (m PublishMode) IsValid() bool {
	switch m {
	case PublishPreset, PublishExplicit:
		return true
	default:
		return false
	}
}

// Packaging describes the edge packaging job.
type Packaging struct {
	// ModelName is the name stamped on the packaged model and its archive.
	ModelName   string      `yaml:"modelName"`
	PublishMode PublishMode `yaml:"publishMode"`
}

// Device identifies the deployment target.
type Device struct {
	ThingName string `yaml:"thingName"`
}

// ComponentRef pins a public component to a version.
type ComponentRef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// EdgeManager configures the optional edge manager agent component.
type EdgeManager struct {
	ComponentRef    `yaml:",inline"`
	DeviceFleetName string `yaml:"deviceFleetName"`
	BucketName      string `yaml:"bucketName"`
}

// ModelComponent configures the component carrying the packaged model.
type ModelComponent struct {
	Name      string `yaml:"name"`
	ModelPath string `yaml:"modelPath"`
}

// InferenceComponent configures the component running inference.
type InferenceComponent struct {
	Name                     string `yaml:"name"`
	InferenceIntervalSeconds int    `yaml:"inferenceIntervalSeconds"`
}

// Components lists the Greengrass components of a deployment.
type Components struct {
	Nucleus     ComponentRef       `yaml:"nucleus"`
	CLI         ComponentRef       `yaml:"cli"`
	EdgeManager *EdgeManager       `yaml:"edgeManager,omitempty"`
	Model       ModelComponent     `yaml:"model"`
	Inference   InferenceComponent `yaml:"inference"`
}

// CheckpointBackend selects where execution checkpoints are persisted.
type CheckpointBackend string

const (
	CheckpointMemory   CheckpointBackend = "memory"
	CheckpointFile     CheckpointBackend = "file"
	CheckpointS3       CheckpointBackend = "s3"
	CheckpointPostgres CheckpointBackend = "postgres"
)

// ValidCheckpointBackends returns all valid checkpoint backends.
func ValidCheckpointBackends() []CheckpointBackend {
	return []CheckpointBackend{CheckpointMemory, CheckpointFile, CheckpointS3, CheckpointPostgres}
}

// IsValid returns true if the backend is known.
func (b CheckpointBackend) IsValid() bool {
	switch b {
	case CheckpointMemory, CheckpointFile, CheckpointS3, CheckpointPostgres:
		return true
	default:
		return false
	}
}

// Checkpoint configures the checkpoint store.
type Checkpoint struct {
	Backend CheckpointBackend `yaml:"backend"`

	// Dir is the directory of the file backend.
	Dir string `yaml:"dir,omitempty"`

	// Bucket, Prefix and Endpoint configure the s3 backend. Endpoint is only
	// needed for S3-compatible stores.
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`

	// DSN is the connection string of the postgres backend. The
	// EDGEFORGE_CHECKPOINT_DSN environment variable takes precedence.
	DSN string `yaml:"dsn,omitempty"`
}
