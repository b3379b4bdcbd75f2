package sagemaker

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
)

// API is the subset of the SageMaker client used by edgeforge.
type API interface {
	sagemaker.ListModelPackagesAPIClient
	DescribeModelPackage(ctx context.Context, in *sagemaker.DescribeModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelPackageOutput, error)
	CreateCompilationJob(ctx context.Context, in *sagemaker.CreateCompilationJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateCompilationJobOutput, error)
	DescribeCompilationJob(ctx context.Context, in *sagemaker.DescribeCompilationJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeCompilationJobOutput, error)
	CreateEdgePackagingJob(ctx context.Context, in *sagemaker.CreateEdgePackagingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEdgePackagingJobOutput, error)
	DescribeEdgePackagingJob(ctx context.Context, in *sagemaker.DescribeEdgePackagingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEdgePackagingJobOutput, error)
}

// Client wraps the SageMaker client.
type Client struct {
	api API
}

// NewClient creates a client from a loaded AWS configuration. SDK-level
// retries are disabled; the engine applies its own policy.
func NewClient(cfg aws.Config) *Client {
	return NewFromAPI(sagemaker.NewFromConfig(cfg, func(o *sagemaker.Options) {
		o.Retryer = aws.NopRetryer{}
	}))
}

// NewFromAPI creates a client on top of an existing API implementation.
func NewFromAPI(api API) *Client {
	return &Client{api: api}
}

// Compilation returns the compilation job adapter.
func (c *Client) Compilation() *CompilationJobs {
	return &CompilationJobs{api: c.api}
}

// Packaging returns the edge packaging job adapter.
func (c *Client) Packaging() *PackagingJobs {
	return &PackagingJobs{api: c.api}
}
