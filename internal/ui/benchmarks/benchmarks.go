// Package benchmarks provides timing estimates for edge deployment phases.
package benchmarks

import (
	"time"

	"github.com/imamik/edgeforge/internal/deployment"
)

// Deployment phases, each covering one or more machine states.
const (
	PhaseModel   = "Model"
	PhaseCompile = "Compile"
	PhasePackage = "Package"
	PhasePublish = "Publish"
	PhaseDeploy  = "Deploy"
	PhaseDevice  = "Device"
)

// DefaultTimings are median phase durations of observed runs (seconds).
var DefaultTimings = map[string]int{
	PhaseModel:   5,
	PhaseCompile: 240,
	PhasePackage: 90,
	PhasePublish: 10,
	PhaseDeploy:  120,
	PhaseDevice:  15,
}

// PhaseOrder defines the sequence of phases for ETA calculation.
var PhaseOrder = []string{
	PhaseModel,
	PhaseCompile,
	PhasePackage,
	PhasePublish,
	PhaseDeploy,
	PhaseDevice,
}

var statePhases = map[deployment.StateName]string{
	deployment.StateResolveModelSource:               PhaseModel,
	deployment.StateCompileModel:                     PhaseCompile,
	deployment.StateWaitCompile:                      PhaseCompile,
	deployment.StatePollCompile:                      PhaseCompile,
	deployment.StateResolveModelComponentVersion:     PhasePackage,
	deployment.StatePackageModel:                     PhasePackage,
	deployment.StateWaitPackage:                      PhasePackage,
	deployment.StatePollPackage:                      PhasePackage,
	deployment.StateResolveTargetDevice:              PhasePublish,
	deployment.StateResolveInferenceComponentVersion: PhasePublish,
	deployment.StatePublishComponent:                 PhasePublish,
	deployment.StateCreateDeployment:                 PhaseDeploy,
	deployment.StateWaitDeployment:                   PhaseDeploy,
	deployment.StatePollDeployment:                   PhaseDeploy,
	deployment.StateWaitDevice:                       PhaseDevice,
	deployment.StatePollDevice:                       PhaseDevice,
	deployment.StateRecordDeployedVersion:            PhaseDevice,
}

// PhaseOf returns the phase a state belongs to, or "" for terminal and
// unknown states.
func PhaseOf(state deployment.StateName) string {
	return statePhases[state]
}

// PhaseRecord is the observed span of one phase.
type PhaseRecord struct {
	Phase     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// EstimateRemaining calculates the estimated time remaining based on
// current phase, elapsed time, and historical phase records.
func EstimateRemaining(currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) time.Duration {
	return EstimateRemainingWithScale(currentPhase, phaseElapsed, history, PerformanceScale(currentPhase, phaseElapsed, history))
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor.
func EstimateRemainingWithScale(currentPhase string, phaseElapsed time.Duration, history []PhaseRecord, scale float64) time.Duration {
	currentIdx := -1
	for i, p := range PhaseOrder {
		if p == currentPhase {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	var remaining time.Duration
	if expected, ok := DefaultTimings[currentPhase]; ok {
		expectedDur := time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		if expectedDur > phaseElapsed {
			remaining += expectedDur - phaseElapsed
		}
	}

	// Phases skipped or already finished (fast path) do not count.
	completed := make(map[string]bool)
	for _, rec := range history {
		if rec.EndedAt != nil {
			completed[rec.Phase] = true
		}
	}

	for i := currentIdx + 1; i < len(PhaseOrder); i++ {
		phase := PhaseOrder[i]
		if completed[phase] {
			continue
		}
		if expected, ok := DefaultTimings[phase]; ok {
			remaining += time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		}
	}
	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 4m, observed 6m => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) float64 {
	var expectedTotal, actualTotal time.Duration

	for _, rec := range history {
		expectedSecs, ok := DefaultTimings[rec.Phase]
		if !ok || rec.EndedAt == nil {
			continue
		}
		expectedTotal += time.Duration(expectedSecs) * time.Second
		actualTotal += rec.EndedAt.Sub(rec.StartedAt)
	}

	// An overrunning current phase is folded in immediately so the ETA adapts quickly.
	if expectedSecs, ok := DefaultTimings[currentPhase]; ok && phaseElapsed > 0 {
		expectedCurrent := time.Duration(expectedSecs) * time.Second
		if phaseElapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += phaseElapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// TotalEstimate returns the total estimated deployment time.
func TotalEstimate() time.Duration {
	var total time.Duration
	for _, phase := range PhaseOrder {
		total += time.Duration(DefaultTimings[phase]) * time.Second
	}
	return total
}
