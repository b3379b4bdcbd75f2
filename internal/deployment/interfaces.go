package deployment

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// ModelRegistry resolves model packages.
type ModelRegistry interface {
	// LatestApprovedModel returns the newest approved package of group.
	LatestApprovedModel(ctx context.Context, group string) (ModelPackage, error)

	// DescribeModel returns the package referenced by ref (an ARN or name).
	DescribeModel(ctx context.Context, ref string) (ModelPackage, error)
}

// CompilationRequest describes a compilation job.
type CompilationRequest struct {
	JobName      string
	RoleArn      string
	ModelDataURL string
	Framework    string
	InputShapes  map[string][]int
	TargetOS     string
	TargetArch   string
	OutputURI    string
	MaxRuntime   time.Duration
	Tags         map[string]string
}

// CompilationService submits and observes compilation jobs.
type CompilationService interface {
	// Submit creates the job. It returns ErrAlreadySubmitted when a job with
	// the same name exists.
	Submit(ctx context.Context, req CompilationRequest) (JobHandle, error)
	Poll(ctx context.Context, job JobHandle) (JobResult, error)
}

// PresetComponent asks the packaging job to register the packaged model as
// a component version itself.
type PresetComponent struct {
	ComponentName    string `json:"ComponentName"`
	ComponentVersion string `json:"ComponentVersion"`
}

// PackagingRequest describes an edge packaging job.
type PackagingRequest struct {
	JobName            string
	CompilationJobName string
	ModelName          string
	ModelVersion       string
	RoleArn            string
	OutputURI          string

	// Preset is nil when the component is published separately.
	Preset *PresetComponent
	Tags   map[string]string
}

// PackagingService submits and observes edge packaging jobs.
type PackagingService interface {
	Submit(ctx context.Context, req PackagingRequest) (JobHandle, error)
	Poll(ctx context.Context, job JobHandle) (JobResult, error)
}

// PublishRequest registers a model component version whose single artifact
// is the packaged archive.
type PublishRequest struct {
	Component   ComponentVersion
	ArtifactURI string
	ModelPath   string
	Tags        map[string]string
}

// ComponentRegistry reads and registers component versions.
type ComponentRegistry interface {
	// NextVersion returns the patch-bumped successor of the latest version
	// of name, treating a missing component as 0.0.0.
	NextVersion(ctx context.Context, name string) (ComponentVersion, error)

	// LatestVersion returns the newest registered version of name. A missing
	// component is a permanent error.
	LatestVersion(ctx context.Context, name string) (ComponentVersion, error)

	Publish(ctx context.Context, req PublishRequest) (PublishedComponent, error)
}

// DeviceDirectory resolves deployment targets.
type DeviceDirectory interface {
	DescribeDevice(ctx context.Context, thingName string) (Device, error)
}

// ComponentDeployment is one component of a deployment. Merge is the
// configuration update serialized as a JSON document; nil means none.
type ComponentDeployment struct {
	Version string
	Merge   any
}

// DeploymentRequest describes a Greengrass deployment.
type DeploymentRequest struct {
	Name       string
	TargetArn  string
	Components map[string]ComponentDeployment
	Tags       map[string]string
}

// DeploymentService creates and observes deployments.
type DeploymentService interface {
	// Submit creates the deployment. The request name doubles as the
	// idempotency token.
	Submit(ctx context.Context, req DeploymentRequest) (JobHandle, error)
	Poll(ctx context.Context, deployment JobHandle) (DeploymentStatus, error)
	DeviceHealth(ctx context.Context, thingName string) (DeviceHealth, error)
}

// ArtifactStore checks for stored artifacts.
type ArtifactStore interface {
	Exists(ctx context.Context, uri string) (bool, error)
}

// ParameterStore writes plain string parameters.
type ParameterStore interface {
	PutParameter(ctx context.Context, name, value string) error
}

// Services bundles the adapters an execution talks to. Parameters may be
// nil, which disables RecordDeployedVersion.
type Services struct {
	Models      ModelRegistry
	Compilation CompilationService
	Packaging   PackagingService
	Components  ComponentRegistry
	Devices     DeviceDirectory
	Deployments DeploymentService
	Artifacts   ArtifactStore
	Parameters  ParameterStore
}

// EdgeManagerConfig is the configuration merge of the edge manager agent.
type EdgeManagerConfig struct {
	DeviceFleetName string `json:"DeviceFleetName"`
	BucketName      string `json:"BucketName"`
}

// ModelComponentConfig is the configuration merge of the model component.
type ModelComponentConfig struct {
	ModelPath string `json:"ModelPath"`
}

// VersionFloor pins a dependency to a minimum version.
type VersionFloor struct {
	VersionRequirement string `json:"VersionRequirement"`
	DependencyType     string `json:"DependencyType"`
}

// InferenceComponentConfig is the configuration merge of the inference
// component. The model dependency is keyed by the model component name.
type InferenceComponentConfig struct {
	ModelComponent    string
	ModelFloor        VersionFloor
	InferenceInterval string
}

// MarshalJSON renders the model dependency under the component name.
func (c InferenceComponentConfig) MarshalJSON() ([]byte, error) {
	return marshalLiteral(map[string]any{
		c.ModelComponent:    c.ModelFloor,
		"InferenceInterval": c.InferenceInterval,
	})
}

// EncodeMerge renders a configuration merge document. Version requirements
// such as ">=1.0.3" stay literal instead of being HTML-escaped.
func EncodeMerge(v any) (string, error) {
	b, err := marshalLiteral(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// HardFloor returns a HARD dependency on version or newer.
func HardFloor(version string) VersionFloor {
	return VersionFloor{VersionRequirement: ">=" + version, DependencyType: "HARD"}
}
