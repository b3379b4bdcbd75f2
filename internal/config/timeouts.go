package config

import (
	"os"
	"strconv"
	"time"

	"github.com/imamik/edgeforge/internal/util/retry"
)

// Timeouts holds the execution deadline, poll intervals and retry budgets.
// These values can be customized via environment variables.
type Timeouts struct {
	Execution      time.Duration // Overall deadline measured from the first start
	PollCompile    time.Duration // Wait between compilation job polls
	PollPackage    time.Duration // Wait between packaging job polls
	PollDeployment time.Duration // Wait between deployment polls
	PollDevice     time.Duration // Wait before the device health check
	ModelLookup    retry.Policy  // Model package lookups
	VersionLookup  retry.Policy  // Component version lookups
	Submit         retry.Policy  // Compilation and packaging job submissions
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - EDGEFORGE_TIMEOUT_EXECUTION (default: 600s)
//   - EDGEFORGE_POLL_COMPILE (default: 30s)
//   - EDGEFORGE_POLL_PACKAGE (default: 15s)
//   - EDGEFORGE_POLL_DEPLOYMENT (default: 5s)
//   - EDGEFORGE_POLL_DEVICE (default: 5s)
//   - EDGEFORGE_RETRY_MODEL_MAX_ATTEMPTS (default: 3)
//   - EDGEFORGE_RETRY_MODEL_INTERVAL (default: 1s)
//   - EDGEFORGE_RETRY_VERSION_MAX_ATTEMPTS (default: 6)
//   - EDGEFORGE_RETRY_VERSION_INTERVAL (default: 2s)
//   - EDGEFORGE_RETRY_SUBMIT_MAX_ATTEMPTS (default: 3)
//   - EDGEFORGE_RETRY_BACKOFF_RATE (default: 2)
func LoadTimeouts() *Timeouts {
	rate := parseFloat("EDGEFORGE_RETRY_BACKOFF_RATE", 2.0)
	return &Timeouts{
		Execution:      parseDuration("EDGEFORGE_TIMEOUT_EXECUTION", 600*time.Second),
		PollCompile:    parseDuration("EDGEFORGE_POLL_COMPILE", 30*time.Second),
		PollPackage:    parseDuration("EDGEFORGE_POLL_PACKAGE", 15*time.Second),
		PollDeployment: parseDuration("EDGEFORGE_POLL_DEPLOYMENT", 5*time.Second),
		PollDevice:     parseDuration("EDGEFORGE_POLL_DEVICE", 5*time.Second),
		ModelLookup: retry.Policy{
			MaxAttempts: parseInt("EDGEFORGE_RETRY_MODEL_MAX_ATTEMPTS", 3),
			Interval:    parseDuration("EDGEFORGE_RETRY_MODEL_INTERVAL", 1*time.Second),
			BackoffRate: rate,
		},
		VersionLookup: retry.Policy{
			MaxAttempts: parseInt("EDGEFORGE_RETRY_VERSION_MAX_ATTEMPTS", 6),
			Interval:    parseDuration("EDGEFORGE_RETRY_VERSION_INTERVAL", 2*time.Second),
			BackoffRate: rate,
		},
		Submit: retry.Policy{
			MaxAttempts: parseInt("EDGEFORGE_RETRY_SUBMIT_MAX_ATTEMPTS", 3),
			Interval:    1 * time.Second,
			BackoffRate: rate,
		},
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, unparsable or not positive, the default value
// is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses a positive integer from an environment variable.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}

// parseFloat parses a multiplier of at least 1 from an environment variable.
func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 1 {
		return defaultVal
	}

	return f
}
