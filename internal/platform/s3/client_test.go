package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestParseURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		uri        string
		bucket     string
		key        string
		shouldFail bool
	}{
		{uri: "s3://bucket/path/to/model.tar.gz", bucket: "bucket", key: "path/to/model.tar.gz"},
		{uri: "s3://bucket", bucket: "bucket", key: ""},
		{uri: "s3:///key", shouldFail: true},
		{uri: "https://bucket/key", shouldFail: true},
		{uri: "", shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			t.Parallel()
			bucket, key, err := ParseURI(tt.uri)
			if tt.shouldFail {
				if err == nil {
					t.Fatalf("ParseURI(%q) expected error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI(%q) unexpected error: %v", tt.uri, err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	client := NewClient(aws.Config{Region: "eu-west-1"}, "")
	if client == nil || client.s3 == nil {
		t.Fatal("expected non-nil client")
	}
	if got := client.s3.Options().Region; got != "eu-west-1" {
		t.Errorf("expected region eu-west-1, got %s", got)
	}

	custom := NewClient(aws.Config{Region: "eu-west-1"}, "http://localhost:9000")
	opts := custom.s3.Options()
	if !opts.UsePathStyle {
		t.Error("expected path-style addressing for a custom endpoint")
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("unexpected endpoint %q", aws.ToString(opts.BaseEndpoint))
	}
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"typed not found", &types.NotFound{}, true},
		{"typed no such key", fmt.Errorf("wrapped: %w", &types.NoSuchKey{}), true},
		{"typed no such bucket", &types.NoSuchBucket{}, true},
		{"generic code", &smithy.GenericAPIError{Code: "404"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
