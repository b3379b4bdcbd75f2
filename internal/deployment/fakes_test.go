package deployment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/edgeforge/internal/checkpoint"
	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/util/retry"
)

var errThrottled = retry.Transient(errors.New("ThrottlingException: rate exceeded"))

// fakeClock is a manual clock. Sleeping advances it instantly.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// onSleep runs before each sleep and may fail it.
	onSleep func(ctx context.Context, d time.Duration) error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.onSleep != nil {
		if err := c.onSleep(ctx, d); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeModels is a fake ModelRegistry.
type fakeModels struct {
	mu sync.Mutex

	LatestFunc   func(ctx context.Context, group string) (ModelPackage, error)
	DescribeFunc func(ctx context.Context, ref string) (ModelPackage, error)

	LatestCalls   []string
	DescribeCalls []string
}

func (f *fakeModels) LatestApprovedModel(ctx context.Context, group string) (ModelPackage, error) {
	f.mu.Lock()
	f.LatestCalls = append(f.LatestCalls, group)
	f.mu.Unlock()
	if f.LatestFunc != nil {
		return f.LatestFunc(ctx, group)
	}
	return ModelPackage{
		Arn:          "arn:aws:sagemaker:eu-west-1:123456789012:model-package/" + group + "/3",
		Version:      3,
		ModelDataURL: "s3://models/" + group + "/model.tar.gz",
	}, nil
}

func (f *fakeModels) DescribeModel(ctx context.Context, ref string) (ModelPackage, error) {
	f.mu.Lock()
	f.DescribeCalls = append(f.DescribeCalls, ref)
	f.mu.Unlock()
	if f.DescribeFunc != nil {
		return f.DescribeFunc(ctx, ref)
	}
	return ModelPackage{Arn: ref, Version: 2, ModelDataURL: "s3://models/described/model.tar.gz"}, nil
}

// fakeJobs backs a fake CompilationService or PackagingService.
type fakeJobs struct {
	mu sync.Mutex

	SubmitCompilationFunc func(ctx context.Context, req CompilationRequest) (JobHandle, error)
	SubmitPackagingFunc   func(ctx context.Context, req PackagingRequest) (JobHandle, error)
	PollFunc              func(ctx context.Context, job JobHandle) (JobResult, error)

	CompilationCalls []CompilationRequest
	PackagingCalls   []PackagingRequest
	PollCalls        []JobHandle
}

func (f *fakeJobs) pollJob(ctx context.Context, job JobHandle) (JobResult, error) {
	f.mu.Lock()
	f.PollCalls = append(f.PollCalls, job)
	f.mu.Unlock()
	if f.PollFunc != nil {
		return f.PollFunc(ctx, job)
	}
	return JobResult{Status: JobCompleted, ArtifactURI: "s3://out/" + job.Name}, nil
}

func (f *fakeJobs) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.PollCalls)
}

type fakeCompilation struct{ *fakeJobs }

func (f fakeCompilation) Submit(ctx context.Context, req CompilationRequest) (JobHandle, error) {
	f.mu.Lock()
	f.CompilationCalls = append(f.CompilationCalls, req)
	f.mu.Unlock()
	if f.SubmitCompilationFunc != nil {
		return f.SubmitCompilationFunc(ctx, req)
	}
	return JobHandle{Name: req.JobName, ID: "arn:compilation-job/" + req.JobName}, nil
}

func (f fakeCompilation) Poll(ctx context.Context, job JobHandle) (JobResult, error) {
	return f.pollJob(ctx, job)
}

type fakePackaging struct{ *fakeJobs }

func (f fakePackaging) Submit(ctx context.Context, req PackagingRequest) (JobHandle, error) {
	f.mu.Lock()
	f.PackagingCalls = append(f.PackagingCalls, req)
	f.mu.Unlock()
	if f.SubmitPackagingFunc != nil {
		return f.SubmitPackagingFunc(ctx, req)
	}
	return JobHandle{Name: req.JobName}, nil
}

func (f fakePackaging) Poll(ctx context.Context, job JobHandle) (JobResult, error) {
	return f.pollJob(ctx, job)
}

// fakeComponents is a fake ComponentRegistry.
type fakeComponents struct {
	mu sync.Mutex

	NextFunc    func(ctx context.Context, name string) (ComponentVersion, error)
	LatestFunc  func(ctx context.Context, name string) (ComponentVersion, error)
	PublishFunc func(ctx context.Context, req PublishRequest) (PublishedComponent, error)

	NextCalls    []string
	LatestCalls  []string
	PublishCalls []PublishRequest
}

func (f *fakeComponents) NextVersion(ctx context.Context, name string) (ComponentVersion, error) {
	f.mu.Lock()
	f.NextCalls = append(f.NextCalls, name)
	f.mu.Unlock()
	if f.NextFunc != nil {
		return f.NextFunc(ctx, name)
	}
	return ComponentVersion{Name: name, Version: "1.0.1"}, nil
}

func (f *fakeComponents) LatestVersion(ctx context.Context, name string) (ComponentVersion, error) {
	f.mu.Lock()
	f.LatestCalls = append(f.LatestCalls, name)
	f.mu.Unlock()
	if f.LatestFunc != nil {
		return f.LatestFunc(ctx, name)
	}
	return ComponentVersion{Name: name, Version: "2.4.0"}, nil
}

func (f *fakeComponents) Publish(ctx context.Context, req PublishRequest) (PublishedComponent, error) {
	f.mu.Lock()
	f.PublishCalls = append(f.PublishCalls, req)
	f.mu.Unlock()
	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, req)
	}
	return PublishedComponent{ComponentVersion: req.Component, Arn: "arn:component/" + req.Component.String()}, nil
}

// fakeDevices is a fake DeviceDirectory.
type fakeDevices struct {
	DescribeFunc  func(ctx context.Context, thing string) (Device, error)
	DescribeCalls []string
}

func (f *fakeDevices) DescribeDevice(ctx context.Context, thing string) (Device, error) {
	f.DescribeCalls = append(f.DescribeCalls, thing)
	if f.DescribeFunc != nil {
		return f.DescribeFunc(ctx, thing)
	}
	return Device{ThingName: thing, ThingArn: "arn:aws:iot:eu-west-1:123456789012:thing/" + thing}, nil
}

// fakeDeployments is a fake DeploymentService.
type fakeDeployments struct {
	mu sync.Mutex

	SubmitFunc func(ctx context.Context, req DeploymentRequest) (JobHandle, error)
	PollFunc   func(ctx context.Context, d JobHandle) (DeploymentStatus, error)
	HealthFunc func(ctx context.Context, thing string) (DeviceHealth, error)

	SubmitCalls []DeploymentRequest
	PollCalls   int
	HealthCalls int
}

func (f *fakeDeployments) Submit(ctx context.Context, req DeploymentRequest) (JobHandle, error) {
	f.mu.Lock()
	f.SubmitCalls = append(f.SubmitCalls, req)
	f.mu.Unlock()
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, req)
	}
	return JobHandle{Name: req.Name, ID: "deployment-0001"}, nil
}

func (f *fakeDeployments) Poll(ctx context.Context, d JobHandle) (DeploymentStatus, error) {
	f.mu.Lock()
	f.PollCalls++
	f.mu.Unlock()
	if f.PollFunc != nil {
		return f.PollFunc(ctx, d)
	}
	return DeploymentCompleted, nil
}

func (f *fakeDeployments) DeviceHealth(ctx context.Context, thing string) (DeviceHealth, error) {
	f.mu.Lock()
	f.HealthCalls++
	f.mu.Unlock()
	if f.HealthFunc != nil {
		return f.HealthFunc(ctx, thing)
	}
	return DeviceHealthy, nil
}

// fakeArtifacts is a fake ArtifactStore.
type fakeArtifacts struct {
	Missing map[string]bool
	Calls   []string
}

func (f *fakeArtifacts) Exists(_ context.Context, uri string) (bool, error) {
	f.Calls = append(f.Calls, uri)
	return !f.Missing[uri], nil
}

// mockParameters is a testify mock of ParameterStore.
type mockParameters struct {
	mock.Mock
}

func (m *mockParameters) PutParameter(ctx context.Context, name, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

// recordingObserver keeps every event.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
	lines  []string
}

func (o *recordingObserver) Printf(format string, _ ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, format)
}

func (o *recordingObserver) Event(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) WithFields(map[string]string) Observer {
	return o
}

func (o *recordingObserver) Types() []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

// enteredStates lists the task states in the order they were entered.
func (o *recordingObserver) enteredStates() []StateName {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []StateName
	for _, e := range o.events {
		if e.Type == EventStateEntered {
			out = append(out, e.State)
		}
	}
	return out
}

// harness wires an engine to fakes.
type harness struct {
	cfg         *config.Config
	clock       *fakeClock
	store       *checkpoint.MemoryStore
	observer    *recordingObserver
	models      *fakeModels
	compilation *fakeJobs
	packaging   *fakeJobs
	components  *fakeComponents
	devices     *fakeDevices
	deployments *fakeDeployments
	artifacts   *fakeArtifacts
	parameters  *mockParameters
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Region:                "eu-west-1",
		RoleArn:               "arn:aws:iam::123456789012:role/edge-packaging",
		ModelPackageGroupName: "quality-inspection",
		Output: config.Output{
			CompiledURI: "s3://edge-artifacts/compiled",
			PackagedURI: "s3://edge-artifacts/packaged",
		},
		Device: config.Device{ThingName: "EdgeThing"},
		Components: config.Components{
			EdgeManager: &config.EdgeManager{BucketName: "edge-data"},
		},
		Checkpoint:             config.Checkpoint{Backend: config.CheckpointMemory},
		DeployedModelParameter: config.DefaultDeployedModelPath,
	}
	cfg.ApplyDefaults()
	return cfg
}

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Execution:      600 * time.Second,
		PollCompile:    30 * time.Second,
		PollPackage:    15 * time.Second,
		PollDeployment: 5 * time.Second,
		PollDevice:     5 * time.Second,
		ModelLookup:    retry.Policy{MaxAttempts: 3, Interval: time.Second, BackoffRate: 2},
		VersionLookup:  retry.Policy{MaxAttempts: 6, Interval: 2 * time.Second, BackoffRate: 2},
		Submit:         retry.Policy{MaxAttempts: 3, Interval: time.Second, BackoffRate: 2},
	}
}

func newHarness() *harness {
	h := &harness{
		cfg:         testConfig(),
		clock:       newFakeClock(),
		store:       checkpoint.NewMemoryStore(),
		observer:    &recordingObserver{},
		models:      &fakeModels{},
		compilation: &fakeJobs{},
		packaging:   &fakeJobs{},
		components:  &fakeComponents{},
		devices:     &fakeDevices{},
		deployments: &fakeDeployments{},
		artifacts:   &fakeArtifacts{},
		parameters:  &mockParameters{},
	}
	h.parameters.On("PutParameter", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return h
}

func (h *harness) services() Services {
	return Services{
		Models:      h.models,
		Compilation: fakeCompilation{h.compilation},
		Packaging:   fakePackaging{h.packaging},
		Components:  h.components,
		Devices:     h.devices,
		Deployments: h.deployments,
		Artifacts:   h.artifacts,
		Parameters:  h.parameters,
	}
}

func (h *harness) engine(opts ...Option) *Engine {
	base := []Option{
		WithStore(h.store),
		WithObserver(h.observer),
		WithTimeouts(testTimeouts()),
		WithClock(h.clock.Now, h.clock.Sleep),
		WithIDGenerator(func() string { return "exec-0001" }),
	}
	e, err := NewEngine(h.cfg, h.services(), append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	return e
}

// codeBuildInput is the trigger of a build pipeline run.
func codeBuildInput() Input {
	return Input{
		ModelPackageGroupName: "quality-inspection",
		InvocationSource:      InvocationSourceCodeBuild,
	}
}

// pollSequence returns a job poll function that reports statuses in order
// and repeats the last one.
func pollSequence(statuses ...JobStatus) func(context.Context, JobHandle) (JobResult, error) {
	var mu sync.Mutex
	i := 0
	return func(_ context.Context, job JobHandle) (JobResult, error) {
		mu.Lock()
		defer mu.Unlock()
		s := statuses[min(i, len(statuses)-1)]
		i++
		res := JobResult{Status: s}
		if s == JobCompleted {
			res.ArtifactURI = "s3://out/" + job.Name
		}
		if s == JobFailed {
			res.FailureReason = "ClientError: unsupported operator"
		}
		return res, nil
	}
}
