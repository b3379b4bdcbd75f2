// Package iot resolves IoT things into deployment targets.
package iot

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/awserr"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// API is the subset of the IoT client used by edgeforge.
type API interface {
	DescribeThing(ctx context.Context, in *iot.DescribeThingInput, optFns ...func(*iot.Options)) (*iot.DescribeThingOutput, error)
}

// Client implements deployment.DeviceDirectory.
type Client struct {
	api API
}

// NewClient creates a client from a loaded AWS configuration with SDK
// retries disabled.
func NewClient(cfg aws.Config) *Client {
	return NewFromAPI(iot.NewFromConfig(cfg, func(o *iot.Options) {
		o.Retryer = aws.NopRetryer{}
	}))
}

// NewFromAPI creates a client on top of an existing API implementation.
func NewFromAPI(api API) *Client {
	return &Client{api: api}
}

// DescribeDevice returns the ARN of the named thing.
func (c *Client) DescribeDevice(ctx context.Context, thingName string) (deployment.Device, error) {
	out, err := c.api.DescribeThing(ctx, &iot.DescribeThingInput{ThingName: aws.String(thingName)})
	if err != nil {
		return deployment.Device{}, awserr.Classify(fmt.Errorf("failed to describe thing %s: %w", thingName, err))
	}
	arn := aws.ToString(out.ThingArn)
	if arn == "" {
		return deployment.Device{}, retry.Fatal(fmt.Errorf("thing %s has no ARN", thingName))
	}
	return deployment.Device{ThingName: thingName, ThingArn: arn}, nil
}
