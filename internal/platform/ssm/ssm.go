// Package ssm records deployed versions in the Systems Manager parameter
// store.
package ssm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/imamik/edgeforge/internal/platform/awserr"
)

// API is the subset of the SSM client used by edgeforge.
type API interface {
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Client implements deployment.ParameterStore.
type Client struct {
	api API
}

// NewClient creates a client from a loaded AWS configuration with SDK
// retries disabled.
func NewClient(cfg aws.Config) *Client {
	return NewFromAPI(ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		o.Retryer = aws.NopRetryer{}
	}))
}

// NewFromAPI creates a client on top of an existing API implementation.
func NewFromAPI(api API) *Client {
	return &Client{api: api}
}

// PutParameter writes value as a plain string parameter, overwriting any
// previous value.
func (c *Client) PutParameter(ctx context.Context, name, value string) error {
	_, err := c.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return awserr.Classify(fmt.Errorf("failed to put parameter %s: %w", name, err))
	}
	return nil
}
