package deployment

import (
	"context"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/imamik/edgeforge/internal/checkpoint"
)

var _ = ginkgo.Describe("Edge deployment workflow", func() {
	var (
		h   *harness
		ctx context.Context
	)

	ginkgo.BeforeEach(func() {
		h = newHarness()
		ctx = context.Background()
	})

	run := func() *Result {
		res, err := h.engine().Start(ctx, "exec-0001", codeBuildInput())
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	expectTerminalCheckpoint := func(res *Result) {
		rec, err := h.store.Load(ctx, "exec-0001")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Status.Terminal()).To(BeTrue())
		Expect(string(rec.Status)).To(Equal(string(res.Outcome)))
	}

	ginkgo.Context("when compilation completes on the third poll", func() {
		ginkgo.BeforeEach(func() {
			h.compilation.PollFunc = pollSequence(JobInProgress, JobInProgress, JobCompleted)
		})

		ginkgo.It("submits the job once and moves on to packaging", func() {
			res := run()

			Expect(res.Outcome).To(Equal(OutcomeSucceeded))
			Expect(h.compilation.CompilationCalls).To(HaveLen(1))
			Expect(h.compilation.polls()).To(Equal(3))
			Expect(h.packaging.PackagingCalls).To(HaveLen(1))
			Expect(h.clock.Sleeps()[:3]).To(Equal([]time.Duration{30 * time.Second, 30 * time.Second, 30 * time.Second}))
			expectTerminalCheckpoint(res)
		})
	})

	ginkgo.Context("when compilation fails on the first poll", func() {
		ginkgo.BeforeEach(func() {
			h.compilation.PollFunc = pollSequence(JobFailed)
		})

		ginkgo.It("fails without packaging", func() {
			res := run()

			Expect(res.Outcome).To(Equal(OutcomeFailed))
			Expect(res.Failure.State).To(Equal(StatePollCompile))
			Expect(res.Failure.Class).To(Equal(ClassPermanent))
			Expect(h.packaging.PackagingCalls).To(BeEmpty())
			Expect(h.components.NextCalls).To(BeEmpty())
			Expect(h.deployments.SubmitCalls).To(BeEmpty())
			expectTerminalCheckpoint(res)
		})
	})

	ginkgo.Context("when the version lookup is throttled twice", func() {
		ginkgo.BeforeEach(func() {
			calls := 0
			h.components.NextFunc = func(_ context.Context, name string) (ComponentVersion, error) {
				calls++
				if calls <= 2 {
					return ComponentVersion{}, errThrottled
				}
				return ComponentVersion{Name: name, Version: "1.0.1"}, nil
			}
		})

		ginkgo.It("retries with backoff and continues", func() {
			res := run()

			Expect(res.Outcome).To(Equal(OutcomeSucceeded))
			Expect(h.components.NextCalls).To(HaveLen(3))
			Expect(h.clock.Sleeps()[1:3]).To(Equal([]time.Duration{2 * time.Second, 4 * time.Second}))
			Expect(h.observer.Types()).To(ContainElement(EventRetryAttempt))
		})
	})

	ginkgo.Context("when the deployment reports Active twice before completing", func() {
		ginkgo.BeforeEach(func() {
			statuses := []DeploymentStatus{DeploymentActive, DeploymentActive, DeploymentCompleted}
			h.deployments.PollFunc = func(context.Context, JobHandle) (DeploymentStatus, error) {
				s := statuses[0]
				if len(statuses) > 1 {
					statuses = statuses[1:]
				}
				return s, nil
			}
		})

		ginkgo.It("waits for completion, checks the device and succeeds", func() {
			res := run()

			Expect(res.Outcome).To(Equal(OutcomeSucceeded))
			Expect(h.deployments.PollCalls).To(Equal(3))
			Expect(h.deployments.HealthCalls).To(Equal(1))

			status, err := Get[DeploymentObservation](res.Context, KeyDeploymentStatus)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(DeploymentCompleted))
			health, err := Get[HealthObservation](res.Context, KeyDeviceHealth)
			Expect(err).NotTo(HaveOccurred())
			Expect(health.Health).To(Equal(DeviceHealthy))
		})
	})

	ginkgo.Context("when the device is unhealthy after deployment", func() {
		ginkgo.BeforeEach(func() {
			h.deployments.HealthFunc = func(context.Context, string) (DeviceHealth, error) {
				return DeviceUnhealthy, nil
			}
		})

		ginkgo.It("fails at the device check and records nothing", func() {
			res := run()

			Expect(res.Outcome).To(Equal(OutcomeFailed))
			Expect(res.Failure.State).To(Equal(StatePollDevice))
			Expect(res.Context.Has(KeyDeployedVersion)).To(BeFalse())
			h.parameters.AssertNotCalled(ginkgo.GinkgoT(), "PutParameter", mock.Anything, mock.Anything, mock.Anything)
			expectTerminalCheckpoint(res)
		})
	})

	ginkgo.It("resolves both component versions before creating the deployment", func() {
		run()

		entered := h.observer.enteredStates()
		Expect(entered).To(ContainElement(StateCreateDeployment))
		deployAt := indexOf(entered, StateCreateDeployment)
		Expect(indexOf(entered, StateResolveModelComponentVersion)).To(BeNumerically("<", deployAt))
		Expect(indexOf(entered, StateResolveInferenceComponentVersion)).To(BeNumerically("<", deployAt))
		Expect(indexOf(entered, StateResolveModelComponentVersion)).To(BeNumerically("<", indexOf(entered, StatePackageModel)))
	})

	ginkgo.It("never submits again across repeated suspensions", func() {
		e := h.engine()
		waits := 0
		var cancel context.CancelFunc
		h.clock.onSleep = func(context.Context, time.Duration) error {
			waits++
			cancel()
			return nil
		}

		var res *Result
		for attempt := 0; attempt < 10 && res == nil; attempt++ {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(ctx)
			var err error
			if attempt == 0 {
				res, err = e.Start(runCtx, "exec-0001", codeBuildInput())
			} else {
				res, err = e.Resume(runCtx, "exec-0001")
			}
			cancel()
			if res == nil {
				Expect(err).To(MatchError(ErrSuspended))
				rec, lerr := h.store.Load(ctx, "exec-0001")
				Expect(lerr).NotTo(HaveOccurred())
				Expect(rec.Status).To(Equal(checkpoint.StatusSuspended))
			}
			if attempt == 3 {
				h.clock.onSleep = nil
			}
		}

		Expect(res).NotTo(BeNil())
		Expect(res.Outcome).To(Equal(OutcomeSucceeded))
		Expect(waits).To(Equal(4))
		Expect(h.compilation.CompilationCalls).To(HaveLen(1))
		Expect(h.packaging.PackagingCalls).To(HaveLen(1))
		Expect(h.deployments.SubmitCalls).To(HaveLen(1))
	})

	ginkgo.It("reaches exactly one terminal outcome", func() {
		res := run()

		Expect([]Outcome{OutcomeSucceeded, OutcomeFailed}).To(ContainElement(res.Outcome))
		types := h.observer.Types()
		terminal := 0
		for _, t := range types {
			if t == EventExecutionSucceeded || t == EventExecutionFailed {
				terminal++
			}
		}
		Expect(terminal).To(Equal(1))
	})
})

func indexOf(states []StateName, name StateName) int {
	for i, s := range states {
		if s == name {
			return i
		}
	}
	return -1
}
