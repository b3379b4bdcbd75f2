package greengrass

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2/types"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/awserr"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// Submit creates a deployment. The request name is used as the client token,
// so resubmitting the same request does not create a second deployment.
func (c *Client) Submit(ctx context.Context, req deployment.DeploymentRequest) (deployment.JobHandle, error) {
	components := make(map[string]types.ComponentDeploymentSpecification, len(req.Components))
	for name, spec := range req.Components {
		out := types.ComponentDeploymentSpecification{ComponentVersion: aws.String(spec.Version)}
		if spec.Merge != nil {
			merge, err := deployment.EncodeMerge(spec.Merge)
			if err != nil {
				return deployment.JobHandle{}, retry.Fatal(fmt.Errorf("failed to encode configuration of %s: %w", name, err))
			}
			out.ConfigurationUpdate = &types.ComponentConfigurationUpdate{Merge: aws.String(merge)}
		}
		components[name] = out
	}

	out, err := c.api.CreateDeployment(ctx, &greengrassv2.CreateDeploymentInput{
		TargetArn:      aws.String(req.TargetArn),
		DeploymentName: aws.String(req.Name),
		Components:     components,
		ClientToken:    aws.String(req.Name),
		Tags:           req.Tags,
	})
	if err != nil {
		return deployment.JobHandle{}, awserr.Classify(fmt.Errorf("failed to create deployment %s: %w", req.Name, err))
	}
	return deployment.JobHandle{Name: req.Name, ID: aws.ToString(out.DeploymentId)}, nil
}

// Poll returns the status of a deployment.
func (c *Client) Poll(ctx context.Context, job deployment.JobHandle) (deployment.DeploymentStatus, error) {
	if job.ID == "" {
		return "", retry.Fatal(fmt.Errorf("deployment %s has no id", job.Name))
	}
	out, err := c.api.GetDeployment(ctx, &greengrassv2.GetDeploymentInput{DeploymentId: aws.String(job.ID)})
	if err != nil {
		return "", awserr.Classify(fmt.Errorf("failed to get deployment %s: %w", job.ID, err))
	}
	return deploymentStatus(out.DeploymentStatus), nil
}

func deploymentStatus(s types.DeploymentStatus) deployment.DeploymentStatus {
	switch s {
	case types.DeploymentStatusActive:
		return deployment.DeploymentActive
	case types.DeploymentStatusCompleted:
		return deployment.DeploymentCompleted
	case types.DeploymentStatusCanceled:
		return deployment.DeploymentCanceled
	case types.DeploymentStatusFailed:
		return deployment.DeploymentFailed
	case types.DeploymentStatusInactive:
		return deployment.DeploymentInactive
	default:
		return deployment.DeploymentStatus(s)
	}
}

// DeviceHealth returns the reported health of a core device.
func (c *Client) DeviceHealth(ctx context.Context, thingName string) (deployment.DeviceHealth, error) {
	out, err := c.api.GetCoreDevice(ctx, &greengrassv2.GetCoreDeviceInput{CoreDeviceThingName: aws.String(thingName)})
	if err != nil {
		return deployment.DeviceUnknown, awserr.Classify(fmt.Errorf("failed to get core device %s: %w", thingName, err))
	}
	switch out.Status {
	case types.CoreDeviceStatusHealthy:
		return deployment.DeviceHealthy, nil
	case types.CoreDeviceStatusUnhealthy:
		return deployment.DeviceUnhealthy, nil
	default:
		return deployment.DeviceUnknown, nil
	}
}
