package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/deployment"
)

type stubDevices struct {
	err error
}

func (s stubDevices) DescribeDevice(_ context.Context, thing string) (deployment.Device, error) {
	if s.err != nil {
		return deployment.Device{}, s.err
	}
	return deployment.Device{ThingName: thing, ThingArn: "arn:aws:iot:eu-central-1:123456789012:thing/" + thing}, nil
}

type stubComponents struct{}

func (stubComponents) NextVersion(_ context.Context, name string) (deployment.ComponentVersion, error) {
	return deployment.ComponentVersion{Name: name, Version: "1.0.1"}, nil
}

func (stubComponents) LatestVersion(_ context.Context, name string) (deployment.ComponentVersion, error) {
	return deployment.ComponentVersion{Name: name, Version: "2.0.0"}, nil
}

func (stubComponents) Publish(_ context.Context, req deployment.PublishRequest) (deployment.PublishedComponent, error) {
	return deployment.PublishedComponent{ComponentVersion: req.Component}, nil
}

func useStubServices(devices stubDevices) {
	newServices = func(aws.Config, *config.Config) deployment.Services {
		return deployment.Services{Devices: devices, Components: stubComponents{}}
	}
}

func TestValidate(t *testing.T) {
	stubEnvironment(t)

	var err error
	output := captureOutput(func() {
		err = Validate(context.Background(), "edgeforge.yaml", false)
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Configuration is valid.")
	assert.Contains(t, output, "line-3-camera")
	assert.Contains(t, output, "Workflow:")
	assert.Contains(t, output, "ResolveModelSource")
	assert.Contains(t, output, "RecordDeployedVersion")
}

func TestValidate_ConfigError(t *testing.T) {
	saveAndRestoreFactories(t)
	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("configuration validation failed: region is required")
	}

	err := Validate(context.Background(), "edgeforge.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region is required")
}

func TestValidate_Remote(t *testing.T) {
	stubEnvironment(t)
	useStubServices(stubDevices{})

	var err error
	output := captureOutput(func() {
		err = Validate(context.Background(), "edgeforge.yaml", true)
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Preflight:")
	assert.Contains(t, output, "✓ device line-3-camera")
	assert.Contains(t, output, "✓ component com.example.Inference")
	assert.Contains(t, output, "✓ checkpoint store (memory)")
}

func TestValidate_RemoteFailure(t *testing.T) {
	stubEnvironment(t)
	useStubServices(stubDevices{err: errors.New("thing line-3-camera not found")})

	var err error
	output := captureOutput(func() {
		err = Validate(context.Background(), "edgeforge.yaml", true)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 preflight checks failed")
	assert.Contains(t, output, "✗ device line-3-camera: thing line-3-camera not found")
}
