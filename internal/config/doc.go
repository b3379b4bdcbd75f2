// Package config defines the configuration of an edgeforge deployment.
//
// The [Config] struct describes everything an execution needs beyond its
// trigger event: the AWS region and SageMaker role, where compiled and
// packaged artifacts are written, the compilation target, the Greengrass
// components that make up a deployment, the target device and the backend
// used to persist execution checkpoints. It is loaded from edgeforge.yaml.
//
// Durations that operators tune per environment (execution deadline, poll
// intervals, retry budgets) are read from EDGEFORGE_* environment variables
// by [LoadTimeouts].
package config
