// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunAll] executes independent operations concurrently and reports the
// outcome of each; [RunParallel] returns only the first failure. They back
// the preflight checks run before a deployment.
package async
