package sagemaker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/awserr"
	"github.com/imamik/edgeforge/internal/util/labels"
)

// presetGreengrassComponent makes a packaging job register its output as a
// Greengrass v2 component version.
const presetGreengrassComponent = types.EdgePresetDeploymentType("GreengrassV2Component")

// jobStatus normalizes SageMaker job states. Stopped jobs never produce an
// artifact and count as failed.
func jobStatus(status string) deployment.JobStatus {
	switch status {
	case "STARTING", "INPROGRESS", "STOPPING":
		return deployment.JobInProgress
	case "COMPLETED":
		return deployment.JobCompleted
	case "FAILED", "STOPPED":
		return deployment.JobFailed
	default:
		return deployment.JobUnknown
	}
}

// submitError maps a name conflict to ErrAlreadySubmitted.
func submitError(kind, name string, err error) error {
	if awserr.IsConflict(err) {
		return fmt.Errorf("%s %s: %w", kind, name, deployment.ErrAlreadySubmitted)
	}
	return awserr.Classify(fmt.Errorf("failed to create %s %s: %w", kind, name, err))
}

// toTags converts a tag map to SageMaker tags in key order.
func toTags(m map[string]string) []types.Tag {
	if len(m) == 0 {
		return nil
	}
	tags := make([]types.Tag, 0, len(m))
	for _, k := range labels.Keys(m) {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return tags
}

// CompilationJobs implements deployment.CompilationService.
type CompilationJobs struct {
	api API
}

// Submit creates a compilation job.
func (j *CompilationJobs) Submit(ctx context.Context, req deployment.CompilationRequest) (deployment.JobHandle, error) {
	shapes, err := json.Marshal(req.InputShapes)
	if err != nil {
		return deployment.JobHandle{}, fmt.Errorf("failed to encode input shapes: %w", err)
	}

	out, err := j.api.CreateCompilationJob(ctx, &sagemaker.CreateCompilationJobInput{
		CompilationJobName: aws.String(req.JobName),
		RoleArn:            aws.String(req.RoleArn),
		InputConfig: &types.InputConfig{
			S3Uri:           aws.String(req.ModelDataURL),
			DataInputConfig: aws.String(string(shapes)),
			Framework:       types.Framework(req.Framework),
		},
		OutputConfig: &types.OutputConfig{
			S3OutputLocation: aws.String(req.OutputURI),
			TargetPlatform: &types.TargetPlatform{
				Os:   types.TargetPlatformOs(req.TargetOS),
				Arch: types.TargetPlatformArch(req.TargetArch),
			},
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(req.MaxRuntime.Seconds())),
		},
		Tags: toTags(req.Tags),
	})
	if err != nil {
		return deployment.JobHandle{}, submitError("compilation job", req.JobName, err)
	}
	return deployment.JobHandle{Name: req.JobName, ID: aws.ToString(out.CompilationJobArn)}, nil
}

// Poll describes a compilation job.
func (j *CompilationJobs) Poll(ctx context.Context, job deployment.JobHandle) (deployment.JobResult, error) {
	out, err := j.api.DescribeCompilationJob(ctx, &sagemaker.DescribeCompilationJobInput{
		CompilationJobName: aws.String(job.Name),
	})
	if err != nil {
		return deployment.JobResult{}, awserr.Classify(fmt.Errorf("failed to describe compilation job %s: %w", job.Name, err))
	}

	res := deployment.JobResult{
		Status:        jobStatus(string(out.CompilationJobStatus)),
		FailureReason: aws.ToString(out.FailureReason),
	}
	if out.ModelArtifacts != nil {
		res.ArtifactURI = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
	}
	return res, nil
}

// PackagingJobs implements deployment.PackagingService.
type PackagingJobs struct {
	api API
}

// Submit creates an edge packaging job.
func (j *PackagingJobs) Submit(ctx context.Context, req deployment.PackagingRequest) (deployment.JobHandle, error) {
	output := &types.EdgeOutputConfig{
		S3OutputLocation: aws.String(req.OutputURI),
	}
	if req.Preset != nil {
		preset, err := json.Marshal(req.Preset)
		if err != nil {
			return deployment.JobHandle{}, fmt.Errorf("failed to encode preset deployment config: %w", err)
		}
		output.PresetDeploymentType = presetGreengrassComponent
		output.PresetDeploymentConfig = aws.String(string(preset))
	}

	_, err := j.api.CreateEdgePackagingJob(ctx, &sagemaker.CreateEdgePackagingJobInput{
		EdgePackagingJobName: aws.String(req.JobName),
		CompilationJobName:   aws.String(req.CompilationJobName),
		ModelName:            aws.String(req.ModelName),
		ModelVersion:         aws.String(req.ModelVersion),
		RoleArn:              aws.String(req.RoleArn),
		OutputConfig:         output,
		Tags:                 toTags(req.Tags),
	})
	if err != nil {
		return deployment.JobHandle{}, submitError("packaging job", req.JobName, err)
	}
	return deployment.JobHandle{Name: req.JobName}, nil
}

// Poll describes an edge packaging job.
func (j *PackagingJobs) Poll(ctx context.Context, job deployment.JobHandle) (deployment.JobResult, error) {
	out, err := j.api.DescribeEdgePackagingJob(ctx, &sagemaker.DescribeEdgePackagingJobInput{
		EdgePackagingJobName: aws.String(job.Name),
	})
	if err != nil {
		return deployment.JobResult{}, awserr.Classify(fmt.Errorf("failed to describe packaging job %s: %w", job.Name, err))
	}
	return deployment.JobResult{
		Status:        jobStatus(string(out.EdgePackagingJobStatus)),
		ArtifactURI:   aws.ToString(out.ModelArtifact),
		FailureReason: aws.ToString(out.EdgePackagingJobStatusMessage),
	}, nil
}
