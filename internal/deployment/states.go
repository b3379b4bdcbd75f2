package deployment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/util/labels"
	"github.com/imamik/edgeforge/internal/util/naming"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// States of the deployment machine.
const (
	StateResolveModelSource               StateName = "ResolveModelSource"
	StateCompileModel                     StateName = "CompileModel"
	StateWaitCompile                      StateName = "WaitCompile"
	StatePollCompile                      StateName = "PollCompile"
	StateResolveModelComponentVersion     StateName = "ResolveModelComponentVersion"
	StatePackageModel                     StateName = "PackageModel"
	StateWaitPackage                      StateName = "WaitPackage"
	StatePollPackage                      StateName = "PollPackage"
	StateResolveTargetDevice              StateName = "ResolveTargetDevice"
	StateResolveInferenceComponentVersion StateName = "ResolveInferenceComponentVersion"
	StatePublishComponent                 StateName = "PublishComponent"
	StateCreateDeployment                 StateName = "CreateDeployment"
	StateWaitDeployment                   StateName = "WaitDeployment"
	StatePollDeployment                   StateName = "PollDeployment"
	StateWaitDevice                       StateName = "WaitDevice"
	StatePollDevice                       StateName = "PollDevice"
	StateRecordDeployedVersion            StateName = "RecordDeployedVersion"
	StateSucceeded                        StateName = "Succeeded"
	StateFailed                           StateName = "Failed"
)

// DeploymentMachine returns the edge deployment graph with wait durations
// taken from t.
func DeploymentMachine(t *config.Timeouts) MachineSpec {
	return MachineSpec{
		Start:   StateResolveModelSource,
		Failure: StateFailed,
		States: []StateDefinition{
			{
				Name:      StateResolveModelSource,
				Kind:      KindTask,
				Next:      []StateName{StateCompileModel, StateResolveModelComponentVersion},
				ResultKey: KeyModelSource,
				Run:       resolveModelSource,
			},
			{
				Name:      StateCompileModel,
				Kind:      KindTask,
				Next:      []StateName{StateWaitCompile},
				ResultKey: KeyCompilationJob,
				Run:       compileModel,
			},
			{Name: StateWaitCompile, Kind: KindWait, Wait: t.PollCompile, Next: []StateName{StatePollCompile}},
			{
				Name:      StatePollCompile,
				Kind:      KindTask,
				Next:      []StateName{StateWaitCompile, StateResolveModelComponentVersion},
				ResultKey: KeyCompilationStatus,
				Observes:  true,
				Run:       pollCompile,
			},
			{
				Name:      StateResolveModelComponentVersion,
				Kind:      KindTask,
				Next:      []StateName{StatePackageModel, StateResolveTargetDevice},
				ResultKey: KeyModelComponentVersion,
				Run:       resolveModelComponentVersion,
			},
			{
				Name:      StatePackageModel,
				Kind:      KindTask,
				Next:      []StateName{StateWaitPackage},
				ResultKey: KeyPackagingJob,
				Run:       packageModel,
			},
			{Name: StateWaitPackage, Kind: KindWait, Wait: t.PollPackage, Next: []StateName{StatePollPackage}},
			{
				Name:      StatePollPackage,
				Kind:      KindTask,
				Next:      []StateName{StateWaitPackage, StateResolveTargetDevice},
				ResultKey: KeyPackagingStatus,
				Observes:  true,
				Run:       pollPackage,
			},
			{
				Name:      StateResolveTargetDevice,
				Kind:      KindTask,
				Next:      []StateName{StateResolveInferenceComponentVersion},
				ResultKey: KeyTargetDevice,
				Run:       resolveTargetDevice,
			},
			{
				Name:      StateResolveInferenceComponentVersion,
				Kind:      KindTask,
				Next:      []StateName{StatePublishComponent, StateCreateDeployment},
				ResultKey: KeyInferenceComponentVersion,
				Run:       resolveInferenceComponentVersion,
			},
			{
				Name:      StatePublishComponent,
				Kind:      KindTask,
				Next:      []StateName{StateCreateDeployment},
				ResultKey: KeyPublishedComponent,
				Run:       publishComponent,
			},
			{
				Name:      StateCreateDeployment,
				Kind:      KindTask,
				Next:      []StateName{StateWaitDeployment},
				ResultKey: KeyDeployment,
				Run:       createDeployment,
			},
			{Name: StateWaitDeployment, Kind: KindWait, Wait: t.PollDeployment, Next: []StateName{StatePollDeployment}},
			{
				Name:      StatePollDeployment,
				Kind:      KindTask,
				Next:      []StateName{StateWaitDeployment, StateWaitDevice},
				ResultKey: KeyDeploymentStatus,
				Observes:  true,
				Run:       pollDeployment,
			},
			{Name: StateWaitDevice, Kind: KindWait, Wait: t.PollDevice, Next: []StateName{StatePollDevice}},
			{
				Name:      StatePollDevice,
				Kind:      KindTask,
				Next:      []StateName{StateWaitDevice, StateRecordDeployedVersion},
				ResultKey: KeyDeviceHealth,
				Observes:  true,
				Run:       pollDevice,
			},
			{
				Name:      StateRecordDeployedVersion,
				Kind:      KindTask,
				Next:      []StateName{StateSucceeded},
				ResultKey: KeyDeployedVersion,
				Run:       recordDeployedVersion,
			},
			{Name: StateSucceeded, Kind: KindSucceed},
			{Name: StateFailed, Kind: KindFail},
		},
	}
}

// existing returns the value under key if an earlier run of the state
// recorded it already.
func existing[T any](c *Context, key Key) (T, bool, error) {
	var zero T
	if !c.Data.Has(key) {
		return zero, false, nil
	}
	v, err := Get[T](c.Data, key)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func resolveModelSource(c *Context) (StateName, error) {
	in := c.Input
	next := StateCompileModel
	if in.FastPath() {
		next = StateResolveModelComponentVersion
	}
	if _, ok, err := existing[ModelSource](c, KeyModelSource); ok || err != nil {
		return next, err
	}

	var src ModelSource
	switch {
	case in.FastPath():
		src = ModelSource{
			ModelPackage:        ModelPackage{Arn: in.ModelArn, ModelDataURL: in.ModelDataURL},
			PackagedArtifactURI: in.PackagedArtifactURI,
		}
		c.Observer.Printf("Using packaged artifact %s, skipping compilation and packaging", in.PackagedArtifactURI)

	case in.ModelDataURL != "":
		src = ModelSource{ModelPackage: ModelPackage{Arn: in.ModelArn, ModelDataURL: in.ModelDataURL}}

	case in.resolvesLatest():
		err := c.call("ListModelPackages", c.Timeouts.ModelLookup, func(ctx context.Context) error {
			pkg, err := c.Services.Models.LatestApprovedModel(ctx, in.ModelPackageGroupName)
			src.ModelPackage = pkg
			return err
		})
		if err != nil {
			return "", fmt.Errorf("failed to resolve latest approved model of %s: %w", in.ModelPackageGroupName, err)
		}

	default:
		err := c.call("DescribeModelPackage", c.Timeouts.ModelLookup, func(ctx context.Context) error {
			pkg, err := c.Services.Models.DescribeModel(ctx, in.ModelArn)
			src.ModelPackage = pkg
			return err
		})
		if err != nil {
			return "", fmt.Errorf("failed to describe model package %s: %w", in.ModelArn, err)
		}
	}

	if !in.FastPath() && src.ModelDataURL == "" {
		return "", Failf("model package %s has no model data", src.Arn)
	}
	if err := c.Record(src); err != nil {
		return "", err
	}
	return next, nil
}

func compileModel(c *Context) (StateName, error) {
	if _, ok, err := existing[JobHandle](c, KeyCompilationJob); ok || err != nil {
		return StateWaitCompile, err
	}
	src, err := Get[ModelSource](c.Data, KeyModelSource)
	if err != nil {
		return "", err
	}

	comp := c.Config.Compilation
	req := CompilationRequest{
		JobName:      naming.CompilationJob(c.ExecutionID),
		RoleArn:      c.Config.RoleArn,
		ModelDataURL: src.ModelDataURL,
		Framework:    comp.Framework,
		InputShapes:  comp.InputShapes,
		TargetOS:     comp.TargetOS,
		TargetArch:   comp.TargetArch,
		OutputURI:    c.Input.CompiledOutputURI,
		MaxRuntime:   time.Duration(comp.MaxRuntimeSeconds) * time.Second,
		Tags:         resourceTags(c),
	}
	handle, err := submit(c, "CreateCompilationJob", req.JobName, func(ctx context.Context) (JobHandle, error) {
		return c.Services.Compilation.Submit(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit compilation job %s: %w", req.JobName, err)
	}
	if err := c.Record(handle); err != nil {
		return "", err
	}
	return StateWaitCompile, nil
}

// submit runs a deterministic submission under the submit policy. A
// conflict on the name means an earlier attempt got through.
func submit(c *Context, operation, name string, fn func(ctx context.Context) (JobHandle, error)) (JobHandle, error) {
	var handle JobHandle
	err := c.call(operation, c.Timeouts.Submit, func(ctx context.Context) error {
		h, err := fn(ctx)
		handle = h
		return err
	})
	if errors.Is(err, ErrAlreadySubmitted) {
		c.Observer.Printf("%s %s already exists, adopting it", operation, name)
		return JobHandle{Name: name, Resubmitted: true}, nil
	}
	if err != nil {
		return JobHandle{}, err
	}
	if handle.Name == "" {
		handle.Name = name
	}
	return handle, nil
}

func pollCompile(c *Context) (StateName, error) {
	job, err := Get[JobHandle](c.Data, KeyCompilationJob)
	if err != nil {
		return "", err
	}
	res, retryWait, err := pollJob(c, "DescribeCompilationJob", job, c.Services.Compilation.Poll)
	if err != nil || retryWait {
		return StateWaitCompile, err
	}
	switch res.Status {
	case JobCompleted:
		return StateResolveModelComponentVersion, nil
	case JobFailed:
		return "", Failf("compilation job %s failed: %s", job.Name, res.FailureReason)
	default:
		return StateWaitCompile, nil
	}
}

// pollJob observes a job once. A transient error asks the caller to wait
// and poll again.
func pollJob(c *Context, operation string, job JobHandle,
	poll func(context.Context, JobHandle) (JobResult, error),
) (JobResult, bool, error) {
	var res JobResult
	err := c.poll(operation, func(ctx context.Context) error {
		r, err := poll(ctx, job)
		res = r
		return err
	})
	if err != nil {
		if retry.IsTransient(err) {
			c.Observer.Printf("Polling %s failed, will poll again: %v", job.Name, err)
			return JobResult{}, true, nil
		}
		return JobResult{}, false, fmt.Errorf("failed to poll %s: %w", job.Name, err)
	}
	if err := c.Observe(res); err != nil {
		return JobResult{}, false, err
	}
	return res, false, nil
}

func resolveModelComponentVersion(c *Context) (StateName, error) {
	next := StatePackageModel
	if c.Input.FastPath() {
		next = StateResolveTargetDevice
	}
	if _, ok, err := existing[ComponentVersion](c, KeyModelComponentVersion); ok || err != nil {
		return next, err
	}

	name := c.Config.Components.Model.Name
	var version ComponentVersion
	err := c.call("ListComponents", c.Timeouts.VersionLookup, func(ctx context.Context) error {
		v, err := c.Services.Components.NextVersion(ctx, name)
		version = v
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve next version of %s: %w", name, err)
	}
	if err := c.Record(version); err != nil {
		return "", err
	}
	return next, nil
}

func packageModel(c *Context) (StateName, error) {
	if _, ok, err := existing[JobHandle](c, KeyPackagingJob); ok || err != nil {
		return StateWaitPackage, err
	}
	compiled, err := Get[JobHandle](c.Data, KeyCompilationJob)
	if err != nil {
		return "", err
	}
	version, err := Get[ComponentVersion](c.Data, KeyModelComponentVersion)
	if err != nil {
		return "", err
	}

	req := PackagingRequest{
		JobName:            naming.PackagingJob(c.ExecutionID),
		CompilationJobName: compiled.Name,
		ModelName:          c.Config.Packaging.ModelName,
		ModelVersion:       version.Version,
		RoleArn:            c.Config.RoleArn,
		OutputURI:          c.Input.PackagedOutputURI,
		Tags:               resourceTags(c),
	}
	if c.Config.Packaging.PublishMode == config.PublishPreset {
		req.Preset = &PresetComponent{ComponentName: version.Name, ComponentVersion: version.Version}
	}
	handle, err := submit(c, "CreateEdgePackagingJob", req.JobName, func(ctx context.Context) (JobHandle, error) {
		return c.Services.Packaging.Submit(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit packaging job %s: %w", req.JobName, err)
	}
	if err := c.Record(handle); err != nil {
		return "", err
	}
	return StateWaitPackage, nil
}

func pollPackage(c *Context) (StateName, error) {
	job, err := Get[JobHandle](c.Data, KeyPackagingJob)
	if err != nil {
		return "", err
	}
	res, retryWait, err := pollJob(c, "DescribeEdgePackagingJob", job, c.Services.Packaging.Poll)
	if err != nil || retryWait {
		return StateWaitPackage, err
	}
	switch res.Status {
	case JobCompleted:
		return StateResolveTargetDevice, nil
	case JobFailed:
		return "", Failf("packaging job %s failed: %s", job.Name, res.FailureReason)
	default:
		return StateWaitPackage, nil
	}
}

func resolveTargetDevice(c *Context) (StateName, error) {
	next := StateResolveInferenceComponentVersion
	if _, ok, err := existing[Device](c, KeyTargetDevice); ok || err != nil {
		return next, err
	}

	thing := c.Config.Device.ThingName
	var device Device
	err := c.call("DescribeThing", retry.Single, func(ctx context.Context) error {
		d, err := c.Services.Devices.DescribeDevice(ctx, thing)
		device = d
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve device %s: %w", thing, err)
	}
	if err := c.Record(device); err != nil {
		return "", err
	}
	return next, nil
}

// publishRequired reports whether edgeforge registers the model component
// itself instead of the packaging job.
func publishRequired(c *Context) bool {
	return c.Input.FastPath() || c.Config.Packaging.PublishMode == config.PublishExplicit
}

func resolveInferenceComponentVersion(c *Context) (StateName, error) {
	next := StateCreateDeployment
	if publishRequired(c) {
		next = StatePublishComponent
	}
	if _, ok, err := existing[ComponentVersion](c, KeyInferenceComponentVersion); ok || err != nil {
		return next, err
	}

	name := c.Config.Components.Inference.Name
	var version ComponentVersion
	err := c.call("ListComponents", c.Timeouts.VersionLookup, func(ctx context.Context) error {
		v, err := c.Services.Components.LatestVersion(ctx, name)
		version = v
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest version of %s: %w", name, err)
	}
	if err := c.Record(version); err != nil {
		return "", err
	}
	return next, nil
}

func publishComponent(c *Context) (StateName, error) {
	if _, ok, err := existing[PublishedComponent](c, KeyPublishedComponent); ok || err != nil {
		return StateCreateDeployment, err
	}
	version, err := Get[ComponentVersion](c.Data, KeyModelComponentVersion)
	if err != nil {
		return "", err
	}
	uri, err := packagedArtifact(c, version)
	if err != nil {
		return "", err
	}

	var found bool
	err = c.call("HeadObject", retry.Single, func(ctx context.Context) error {
		ok, err := c.Services.Artifacts.Exists(ctx, uri)
		found = ok
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to check packaged artifact %s: %w", uri, err)
	}
	if !found {
		return "", Failf("packaged artifact %s does not exist", uri)
	}

	req := PublishRequest{
		Component:   version,
		ArtifactURI: uri,
		ModelPath:   c.Config.Components.Model.ModelPath,
		Tags:        resourceTags(c),
	}
	var published PublishedComponent
	err = c.call("CreateComponentVersion", retry.Single, func(ctx context.Context) error {
		p, err := c.Services.Components.Publish(ctx, req)
		published = p
		return err
	})
	switch {
	case errors.Is(err, ErrAlreadySubmitted):
		c.Observer.Printf("Component %s is already registered", version)
		published = PublishedComponent{ComponentVersion: version}
	case err != nil:
		return "", fmt.Errorf("failed to publish %s: %w", version, err)
	}
	if err := c.Record(published); err != nil {
		return "", err
	}
	return StateCreateDeployment, nil
}

// packagedArtifact returns the archive the model component is published
// from: the given artifact on the fast path, otherwise the packaging
// job's output.
func packagedArtifact(c *Context, version ComponentVersion) (string, error) {
	src, err := Get[ModelSource](c.Data, KeyModelSource)
	if err != nil {
		return "", err
	}
	if src.PackagedArtifactURI != "" {
		return src.PackagedArtifactURI, nil
	}
	if status, ok, err := existing[JobResult](c, KeyPackagingStatus); err != nil {
		return "", err
	} else if ok && status.ArtifactURI != "" {
		return status.ArtifactURI, nil
	}
	return strings.TrimSuffix(c.Input.PackagedOutputURI, "/") + "/" +
		naming.ModelArtifact(c.Config.Packaging.ModelName, version.Version), nil
}

func createDeployment(c *Context) (StateName, error) {
	if _, ok, err := existing[JobHandle](c, KeyDeployment); ok || err != nil {
		return StateWaitDeployment, err
	}
	device, err := Get[Device](c.Data, KeyTargetDevice)
	if err != nil {
		return "", err
	}
	model, err := Get[ComponentVersion](c.Data, KeyModelComponentVersion)
	if err != nil {
		return "", err
	}
	inference, err := Get[ComponentVersion](c.Data, KeyInferenceComponentVersion)
	if err != nil {
		return "", err
	}

	req := DeploymentRequest{
		Name:       naming.Deployment(c.ExecutionID),
		TargetArn:  device.ThingArn,
		Components: deploymentComponents(c.Config.Components, model, inference),
		Tags:       resourceTags(c),
	}
	var handle JobHandle
	err = c.call("CreateDeployment", retry.Single, func(ctx context.Context) error {
		h, err := c.Services.Deployments.Submit(ctx, req)
		handle = h
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create deployment %s: %w", req.Name, err)
	}
	if handle.Name == "" {
		handle.Name = req.Name
	}
	if err := c.Record(handle); err != nil {
		return "", err
	}
	return StateWaitDeployment, nil
}

// deploymentComponents assembles the component set of a deployment. The
// inference component requires the deployed model version or newer.
func deploymentComponents(cc config.Components, model, inference ComponentVersion) map[string]ComponentDeployment {
	out := map[string]ComponentDeployment{
		cc.Nucleus.Name: {Version: cc.Nucleus.Version},
		cc.CLI.Name:     {Version: cc.CLI.Version},
		model.Name: {
			Version: model.Version,
			Merge:   ModelComponentConfig{ModelPath: cc.Model.ModelPath},
		},
		inference.Name: {
			Version: inference.Version,
			Merge: InferenceComponentConfig{
				ModelComponent:    model.Name,
				ModelFloor:        HardFloor(model.Version),
				InferenceInterval: strconv.Itoa(cc.Inference.InferenceIntervalSeconds),
			},
		},
	}
	if em := cc.EdgeManager; em != nil && em.Name != "" {
		out[em.Name] = ComponentDeployment{
			Version: em.Version,
			Merge:   EdgeManagerConfig{DeviceFleetName: em.DeviceFleetName, BucketName: em.BucketName},
		}
	}
	return out
}

func pollDeployment(c *Context) (StateName, error) {
	handle, err := Get[JobHandle](c.Data, KeyDeployment)
	if err != nil {
		return "", err
	}
	var status DeploymentStatus
	err = c.poll("GetDeployment", func(ctx context.Context) error {
		s, err := c.Services.Deployments.Poll(ctx, handle)
		status = s
		return err
	})
	if retry.IsTransient(err) {
		c.Observer.Printf("Polling deployment %s failed, will poll again: %v", handle.Name, err)
		return StateWaitDeployment, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to poll deployment %s: %w", handle.Name, err)
	}
	if err := c.Observe(DeploymentObservation{Status: status}); err != nil {
		return "", err
	}

	switch status {
	case DeploymentCompleted:
		return StateWaitDevice, nil
	case DeploymentActive:
		return StateWaitDeployment, nil
	default:
		return "", Failf("deployment %s ended with status %s", handle.Name, status)
	}
}

func pollDevice(c *Context) (StateName, error) {
	thing := c.Config.Device.ThingName
	var health DeviceHealth
	err := c.poll("GetCoreDevice", func(ctx context.Context) error {
		h, err := c.Services.Deployments.DeviceHealth(ctx, thing)
		health = h
		return err
	})
	if retry.IsTransient(err) {
		c.Observer.Printf("Checking device %s failed, will check again: %v", thing, err)
		return StateWaitDevice, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check device %s: %w", thing, err)
	}
	if err := c.Observe(HealthObservation{Health: health}); err != nil {
		return "", err
	}
	if health != DeviceHealthy {
		return "", Failf("device %s is %s after deployment", thing, health)
	}
	return StateRecordDeployedVersion, nil
}

// recordDeployedVersion publishes the deployed model package version. It
// never fails the execution.
func recordDeployedVersion(c *Context) (StateName, error) {
	if _, ok, err := existing[DeployedVersion](c, KeyDeployedVersion); ok || err != nil {
		return StateSucceeded, err
	}
	src, err := Get[ModelSource](c.Data, KeyModelSource)
	if err != nil {
		return "", err
	}

	param := c.Config.DeployedModelParameter
	result := DeployedVersion{Parameter: param, Value: src.VersionLabel()}
	switch {
	case param == "" || c.Services.Parameters == nil:
		result = DeployedVersion{Skipped: "no parameter configured"}
	case result.Value == "":
		result = DeployedVersion{Parameter: param, Skipped: "model version unknown"}
	default:
		err := c.call("PutParameter", retry.Single, func(ctx context.Context) error {
			return c.Services.Parameters.PutParameter(ctx, param, result.Value)
		})
		if err != nil {
			c.Observer.Printf("Recording deployed model version in %s failed: %v", param, err)
			result = DeployedVersion{Parameter: param, Skipped: err.Error()}
		}
	}
	if err := c.Record(result); err != nil {
		return "", err
	}
	return StateSucceeded, nil
}

// resourceTags returns the tags of every AWS resource an execution creates.
func resourceTags(c *Context) map[string]string {
	return labels.NewLabelBuilder(c.ExecutionID).
		WithModelGroupIfSet(c.Input.ModelPackageGroupName).
		WithDevice(c.Config.Device.ThingName).
		Merge(c.Config.Tags).
		Build()
}
