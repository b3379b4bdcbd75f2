// Package sagemaker adapts the SageMaker API to the model registry,
// compilation and packaging interfaces of the deployment engine.
package sagemaker
