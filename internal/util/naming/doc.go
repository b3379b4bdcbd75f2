// Package naming provides deterministic names for the AWS resources a
// deployment execution creates.
//
// Every name is a pure function of the execution id: {prefix}-{id} for
// SageMaker jobs and Greengrass deployments. Resubmitting after a crash
// therefore targets the same resource, which the service rejects as a
// duplicate instead of creating a second one.
package naming
