package sagemaker

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/awserr"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// LatestApprovedModel returns the most recently created approved package of
// group.
func (c *Client) LatestApprovedModel(ctx context.Context, group string) (deployment.ModelPackage, error) {
	paginator := sagemaker.NewListModelPackagesPaginator(c.api, &sagemaker.ListModelPackagesInput{
		ModelPackageGroupName: aws.String(group),
		ModelApprovalStatus:   types.ModelApprovalStatusApproved,
		SortBy:                types.ModelPackageSortByCreationTime,
		SortOrder:             types.SortOrderDescending,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deployment.ModelPackage{}, awserr.Classify(fmt.Errorf("failed to list model packages of %s: %w", group, err))
		}
		for _, summary := range page.ModelPackageSummaryList {
			if arn := aws.ToString(summary.ModelPackageArn); arn != "" {
				return c.DescribeModel(ctx, arn)
			}
		}
	}
	return deployment.ModelPackage{}, retry.Fatal(fmt.Errorf("no approved model package in group %s", group))
}

// DescribeModel returns the package named by ref.
func (c *Client) DescribeModel(ctx context.Context, ref string) (deployment.ModelPackage, error) {
	out, err := c.api.DescribeModelPackage(ctx, &sagemaker.DescribeModelPackageInput{
		ModelPackageName: aws.String(ref),
	})
	if err != nil {
		return deployment.ModelPackage{}, awserr.Classify(fmt.Errorf("failed to describe model package %s: %w", ref, err))
	}

	pkg := deployment.ModelPackage{
		Arn:     aws.ToString(out.ModelPackageArn),
		Version: int(aws.ToInt32(out.ModelPackageVersion)),
	}
	if spec := out.InferenceSpecification; spec != nil {
		for _, container := range spec.Containers {
			if url := aws.ToString(container.ModelDataUrl); url != "" {
				pkg.ModelDataURL = url
				break
			}
		}
	}
	return pkg, nil
}
