// Package awserr classifies AWS SDK errors for the retry policy.
//
// Throttling, server faults and connection problems are momentary and marked
// with retry.Transient. Everything else (validation, missing resources,
// access denied) is marked with retry.Fatal. Callers then decide what to do
// purely from the classification, never from error text.
package awserr

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsretry "github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/imamik/edgeforge/internal/util/retry"
)

// conflictCodes are returned when a resource with the requested name exists.
var conflictCodes = map[string]struct{}{
	"ResourceInUse":                  {},
	"ResourceInUseException":         {},
	"ConflictException":              {},
	"ResourceAlreadyExists":          {},
	"ResourceAlreadyExistsException": {},
}

// notFoundCodes are returned when the addressed resource does not exist.
var notFoundCodes = map[string]struct{}{
	"ResourceNotFound":          {},
	"ResourceNotFoundException": {},
	"ParameterNotFound":         {},
	"NotFound":                  {},
	"NoSuchKey":                 {},
	"NoSuchBucket":              {},
}

// Classify wraps err as transient or fatal. Already classified errors and
// nil are returned unchanged.
func Classify(err error) error {
	if err == nil || retry.IsFatal(err) || retry.IsTransient(err) {
		return err
	}
	if IsTransient(err) {
		return retry.Transient(err)
	}
	return retry.Fatal(err)
}

// IsTransient reports whether err is a throttling response, a server fault,
// a request timeout or a connection error.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := awsretry.DefaultThrottleErrorCodes[code]; ok {
			return true
		}
		if _, ok := awsretry.DefaultRetryableErrorCodes[code]; ok {
			return true
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return true
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return true
		}
	}

	return awsretry.RetryableConnectionError{}.IsErrorRetryable(err) == aws.TrueTernary
}

// IsConflict reports whether err says the named resource already exists.
func IsConflict(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := conflictCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// IsNotFound reports whether err says the addressed resource does not exist.
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := notFoundCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
