package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/imamik/edgeforge/internal/platform/s3"
)

var (
	regionRegex  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)
	roleArnRegex = regexp.MustCompile(`^arn:aws[a-z-]*:iam::\d{12}:role/.+$`)
)

// CheckpointDSNEnv overrides checkpoint.dsn when set.
const CheckpointDSNEnv = "EDGEFORGE_CHECKPOINT_DSN"

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	} else if !regionRegex.MatchString(c.Region) {
		errs = append(errs, fmt.Errorf("region %q is not an AWS region name", c.Region))
	}

	if c.RoleArn == "" {
		errs = append(errs, errors.New("roleArn is required"))
	} else if !roleArnRegex.MatchString(c.RoleArn) {
		errs = append(errs, fmt.Errorf("roleArn %q is not an IAM role ARN", c.RoleArn))
	}

	if _, _, err := s3.ParseURI(c.Output.CompiledURI); err != nil {
		errs = append(errs, fmt.Errorf("output.compiledUri: %w", err))
	}
	if _, _, err := s3.ParseURI(c.Output.PackagedURI); err != nil {
		errs = append(errs, fmt.Errorf("output.packagedUri: %w", err))
	}

	if c.Compilation.MaxRuntimeSeconds < 0 {
		errs = append(errs, errors.New("compilation.maxRuntimeSeconds must not be negative"))
	}
	for name, shape := range c.Compilation.InputShapes {
		if len(shape) == 0 {
			errs = append(errs, fmt.Errorf("compilation.inputShapes.%s must not be empty", name))
		}
	}

	if !c.Packaging.PublishMode.IsValid() {
		errs = append(errs, fmt.Errorf("packaging.publishMode must be one of: %v", ValidPublishModes()))
	}

	if c.Device.ThingName == "" {
		errs = append(errs, errors.New("device.thingName is required"))
	}

	if em := c.Components.EdgeManager; em != nil && em.BucketName == "" {
		errs = append(errs, errors.New("components.edgeManager.bucketName is required when the edge manager is enabled"))
	}
	if c.Components.Inference.InferenceIntervalSeconds < 0 {
		errs = append(errs, errors.New("components.inference.inferenceIntervalSeconds must not be negative"))
	}

	for key := range c.Tags {
		if strings.HasPrefix(key, "aws:") || strings.HasPrefix(key, "edgeforge:") {
			errs = append(errs, fmt.Errorf("tags.%s: the aws: and edgeforge: prefixes are reserved", key))
		}
	}

	errs = append(errs, c.Checkpoint.validate()...)

	return errors.Join(errs...)
}

func (cp *Checkpoint) validate() []error {
	if !cp.Backend.IsValid() {
		return []error{fmt.Errorf("checkpoint.backend must be one of: %v", ValidCheckpointBackends())}
	}
	switch cp.Backend {
	case CheckpointS3:
		if cp.Bucket == "" {
			return []error{errors.New("checkpoint.bucket is required for the s3 backend")}
		}
	case CheckpointPostgres:
		if cp.ResolvedDSN() == "" {
			return []error{fmt.Errorf("checkpoint.dsn or %s is required for the postgres backend", CheckpointDSNEnv)}
		}
	}
	return nil
}

// ResolvedDSN returns the postgres connection string, preferring the
// environment over the file.
func (cp *Checkpoint) ResolvedDSN() string {
	if dsn := os.Getenv(CheckpointDSNEnv); dsn != "" {
		return dsn
	}
	return cp.DSN
}
