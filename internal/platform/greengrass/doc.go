// Package greengrass adapts the AWS IoT Greengrass v2 API to the
// deployment engine: component version lookup and registration, deployment
// creation and observation, and core device health.
package greengrass
