// Package retry provides exponential backoff retry logic for transient failures.
//
// The [WithExponentialBackoff] function retries an operation with configurable
// attempt budget, initial delay, multiplier and maximum delay. It wraps the
// individual collaborator calls of a deployment execution (model lookups,
// component version lookups, job submissions); the polling loops of the
// workflow use fixed waits instead.
//
// Errors carry a classification: [Transient] errors are retried, [Fatal]
// errors are not. Once the attempt budget is exhausted the last error is
// returned as fatal.
package retry
