package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errRoleArnInvalid  = errors.New("role must be an IAM role ARN (arn:aws:iam::<account>:role/<name>)")
	errRequired        = errors.New("value is required")
	errS3URIInvalid    = errors.New("expected an s3://bucket/prefix URI")
	errIntervalInvalid = errors.New("interval must be a positive number of seconds")
)
