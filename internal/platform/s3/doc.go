// Package s3 provides a client for Amazon S3 and S3-compatible stores.
//
// Edgeforge uses it for two things: verifying that a packaged model archive
// exists before its component is published, and persisting execution
// checkpoints as JSON objects. Every error is classified for the retry
// policy before it is returned.
package s3
