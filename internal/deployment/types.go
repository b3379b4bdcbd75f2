package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/edgeforge/internal/checkpoint"
	"github.com/imamik/edgeforge/internal/config"
)

// InvocationSourceCodeBuild marks a trigger from the build pipeline: the
// newest approved model of the group is deployed regardless of ModelArn.
const InvocationSourceCodeBuild = "CodeBuild"

// Input is the immutable input of one execution.
type Input struct {
	ModelPackageGroupName string `json:"modelPackageGroupName,omitempty"`
	InvocationSource      string `json:"invocationSource,omitempty"`

	// ModelArn references a model package directly.
	ModelArn string `json:"modelArn,omitempty"`

	// ModelDataURL names a concrete model blob and skips the registry.
	ModelDataURL string `json:"modelDataUrl,omitempty"`

	// PackagedArtifactURI names an already compiled and packaged archive.
	// Compilation and packaging are skipped and the component is published
	// from it directly.
	PackagedArtifactURI string `json:"packagedArtifactUri,omitempty"`

	CompiledOutputURI string `json:"compiledOutputUri,omitempty"`
	PackagedOutputURI string `json:"packagedOutputUri,omitempty"`
}

// FastPath reports whether compilation and packaging are skipped.
func (in Input) FastPath() bool {
	return in.PackagedArtifactURI != ""
}

// resolvesLatest reports whether the model comes from the newest approved
// package of the group rather than ModelArn.
func (in Input) resolvesLatest() bool {
	return in.InvocationSource == InvocationSourceCodeBuild || in.ModelArn == ""
}

// withDefaults fills the group and output locations from cfg.
func (in Input) withDefaults(cfg *config.Config) Input {
	if in.ModelPackageGroupName == "" {
		in.ModelPackageGroupName = cfg.ModelPackageGroupName
	}
	if in.CompiledOutputURI == "" {
		in.CompiledOutputURI = cfg.Output.CompiledURI
	}
	if in.PackagedOutputURI == "" {
		in.PackagedOutputURI = cfg.Output.PackagedURI
	}
	return in
}

// Validate checks that the input names a model and, unless the fast path is
// taken, where job outputs go.
func (in Input) Validate() error {
	var errs []error
	if in.ModelPackageGroupName == "" && in.ModelArn == "" && in.ModelDataURL == "" && in.PackagedArtifactURI == "" {
		errs = append(errs, errors.New("one of modelPackageGroupName, modelArn, modelDataUrl or packagedArtifactUri is required"))
	}
	if in.InvocationSource == InvocationSourceCodeBuild && in.ModelPackageGroupName == "" && in.ModelDataURL == "" && !in.FastPath() {
		errs = append(errs, errors.New("modelPackageGroupName is required for CodeBuild invocations"))
	}
	if !in.FastPath() {
		if in.CompiledOutputURI == "" {
			errs = append(errs, errors.New("compiledOutputUri is required"))
		}
		if in.PackagedOutputURI == "" {
			errs = append(errs, errors.New("packagedOutputUri is required"))
		}
	}
	return errors.Join(errs...)
}

// triggerEvent is the wire form of a trigger. Both spellings of the
// invocation source key are accepted.
type triggerEvent struct {
	ModelPackageGroupName      string `json:"modelPackageGroupName"`
	ModelPackageGroupNameUpper string `json:"ModelPackageGroupName"`
	InvocationSource           string `json:"invocationSource"`
	InvokationSource           string `json:"invokationSource"`
	ModelArn                   string `json:"modelArn"`
	ModelDataURL               string `json:"modelDataUrl"`
	PackagedArtifactURI        string `json:"packagedArtifactUri"`
	CompiledOutputURI          string `json:"s3OutputUriCompiledModel"`
	PackagedOutputURI          string `json:"s3OutputUriPackagedModel"`
}

// ParseTriggerEvent decodes a trigger event into an Input.
func ParseTriggerEvent(data []byte) (Input, error) {
	var ev triggerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Input{}, fmt.Errorf("failed to parse trigger event: %w", err)
	}
	in := Input{
		ModelPackageGroupName: firstNonEmpty(ev.ModelPackageGroupName, ev.ModelPackageGroupNameUpper),
		InvocationSource:      firstNonEmpty(ev.InvocationSource, ev.InvokationSource),
		ModelArn:              ev.ModelArn,
		ModelDataURL:          ev.ModelDataURL,
		PackagedArtifactURI:   ev.PackagedArtifactURI,
		CompiledOutputURI:     ev.CompiledOutputURI,
		PackagedOutputURI:     ev.PackagedOutputURI,
	}
	return in, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// JobStatus is the normalized status of a compilation or packaging job.
type JobStatus string

const (
	JobUnknown    JobStatus = "Unknown"
	JobInProgress JobStatus = "InProgress"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
)

// DeploymentStatus is the status of a Greengrass deployment.
type DeploymentStatus string

const (
	DeploymentActive    DeploymentStatus = "Active"
	DeploymentCompleted DeploymentStatus = "Completed"
	DeploymentFailed    DeploymentStatus = "Failed"
	DeploymentCanceled  DeploymentStatus = "Canceled"
	DeploymentInactive  DeploymentStatus = "Inactive"
)

// DeviceHealth is the health reported by a core device.
type DeviceHealth string

const (
	DeviceHealthy   DeviceHealth = "Healthy"
	DeviceUnhealthy DeviceHealth = "Unhealthy"
	DeviceUnknown   DeviceHealth = "Unknown"
)

// Outcome is the terminal status of an execution.
type Outcome string

const (
	OutcomeSucceeded Outcome = "Succeeded"
	OutcomeFailed    Outcome = "Failed"
)

// FailureClass says why an operation or execution failed.
type FailureClass string

const (
	ClassTransient FailureClass = "Transient"
	ClassPermanent FailureClass = "Permanent"
	ClassTimeout   FailureClass = "Timeout"
)

// ComponentVersion names one version of a Greengrass component.
type ComponentVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (c ComponentVersion) String() string {
	return c.Name + "@" + c.Version
}

// ModelPackage is a resolved model registry entry.
type ModelPackage struct {
	Arn          string `json:"arn,omitempty"`
	Version      int    `json:"version,omitempty"`
	ModelDataURL string `json:"modelDataUrl"`
}

// ModelSource is the result of ResolveModelSource.
type ModelSource struct {
	ModelPackage
	PackagedArtifactURI string `json:"packagedArtifactUri,omitempty"`
}

// VersionLabel returns the model package version as recorded after a
// deployment, or "" when the model did not come from the registry.
func (m ModelSource) VersionLabel() string {
	if m.Version == 0 {
		return ""
	}
	return strconv.Itoa(m.Version)
}

// JobHandle identifies a submitted job or deployment.
type JobHandle struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`

	// Resubmitted is set when the submission found an existing resource
	// with the same name.
	Resubmitted bool `json:"resubmitted,omitempty"`
}

// JobResult is the observed state of a compilation or packaging job.
type JobResult struct {
	Status        JobStatus `json:"status"`
	ArtifactURI   string    `json:"artifactUri,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
}

// Device is a resolved deployment target.
type Device struct {
	ThingName string `json:"thingName"`
	ThingArn  string `json:"thingArn"`
}

// PublishedComponent is a component version registered by edgeforge.
type PublishedComponent struct {
	ComponentVersion
	Arn string `json:"arn,omitempty"`
}

// DeploymentObservation is the result of PollDeployment.
type DeploymentObservation struct {
	Status DeploymentStatus `json:"status"`
}

// HealthObservation is the result of PollDevice.
type HealthObservation struct {
	Health DeviceHealth `json:"health"`
}

// DeployedVersion is the result of RecordDeployedVersion.
type DeployedVersion struct {
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
}

// Failure describes why an execution failed.
type Failure struct {
	State StateName    `json:"state"`
	Class FailureClass `json:"class"`
	Cause string       `json:"cause"`
}

// Result is the outcome of Start or Resume.
type Result struct {
	ExecutionID string
	Outcome     Outcome
	Failure     *Failure
	Context     *WorkflowContext
	StartedAt   time.Time
	FinishedAt  time.Time
}

// status maps the outcome to a checkpoint status.
func (o Outcome) status() checkpoint.Status {
	if o == OutcomeSucceeded {
		return checkpoint.StatusSucceeded
	}
	return checkpoint.StatusFailed
}
