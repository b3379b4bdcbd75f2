package greengrass

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"
)

// API is the subset of the Greengrass v2 client used by edgeforge.
type API interface {
	greengrassv2.ListComponentsAPIClient
	CreateComponentVersion(ctx context.Context, in *greengrassv2.CreateComponentVersionInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.CreateComponentVersionOutput, error)
	CreateDeployment(ctx context.Context, in *greengrassv2.CreateDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.CreateDeploymentOutput, error)
	GetDeployment(ctx context.Context, in *greengrassv2.GetDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.GetDeploymentOutput, error)
	GetCoreDevice(ctx context.Context, in *greengrassv2.GetCoreDeviceInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.GetCoreDeviceOutput, error)
}

// Client wraps the Greengrass v2 client. It implements
// deployment.ComponentRegistry and deployment.DeploymentService.
type Client struct {
	api API
}

// NewClient creates a client from a loaded AWS configuration with SDK
// retries disabled.
func NewClient(cfg aws.Config) *Client {
	return NewFromAPI(greengrassv2.NewFromConfig(cfg, func(o *greengrassv2.Options) {
		o.Retryer = aws.NopRetryer{}
	}))
}

// NewFromAPI creates a client on top of an existing API implementation.
func NewFromAPI(api API) *Client {
	return &Client{api: api}
}
