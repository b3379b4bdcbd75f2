package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imamik/edgeforge/internal/platform/s3"
	"github.com/imamik/edgeforge/internal/util/naming"
)

// ObjectStore is the subset of the S3 client the S3Store needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Store keeps one JSON object per execution under a key prefix.
type S3Store struct {
	objects ObjectStore
	bucket  string
	prefix  string
}

// NewS3Store returns an S3Store writing to bucket under prefix.
func NewS3Store(objects ObjectStore, bucket, prefix string) *S3Store {
	return &S3Store{objects: objects, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Save uploads rec, replacing any previous object.
func (s *S3Store) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint %s: %w", rec.ExecutionID, err)
	}
	key := naming.CheckpointObject(s.prefix, rec.ExecutionID)
	if err := s.objects.PutObject(ctx, s.bucket, key, data); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", rec.ExecutionID, err)
	}
	return nil
}

// Load downloads the checkpoint of one execution.
func (s *S3Store) Load(ctx context.Context, executionID string) (*Record, error) {
	if err := ValidateID(executionID); err != nil {
		return nil, err
	}
	data, err := s.objects.GetObject(ctx, s.bucket, naming.CheckpointObject(s.prefix, executionID))
	if err != nil {
		if s3.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, executionID)
		}
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", executionID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", executionID, err)
	}
	return &rec, nil
}

// List downloads every checkpoint under the prefix.
func (s *S3Store) List(ctx context.Context) ([]Record, error) {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	keys, err := s.objects.ListObjects(ctx, s.bucket, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	var out []Record
	for _, key := range keys {
		name := strings.TrimPrefix(key, listPrefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	sortRecords(out)
	return out, nil
}
