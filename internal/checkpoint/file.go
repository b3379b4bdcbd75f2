package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per execution in a directory.
// Writes go to a temporary file that is renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(executionID string) string {
	return filepath.Join(s.dir, executionID+".json")
}

// Save writes rec atomically.
func (s *FileStore) Save(_ context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint %s: %w", rec.ExecutionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, rec.ExecutionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint %s: %w", rec.ExecutionID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint %s: %w", rec.ExecutionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint %s: %w", rec.ExecutionID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ExecutionID)); err != nil {
		return fmt.Errorf("failed to commit checkpoint %s: %w", rec.ExecutionID, err)
	}
	return nil
}

// Load reads the checkpoint of one execution.
func (s *FileStore) Load(_ context.Context, executionID string) (*Record, error) {
	if err := ValidateID(executionID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(executionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, executionID)
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", executionID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", executionID, err)
	}
	return &rec, nil
}

// List reads every checkpoint in the directory, most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint directory %s: %w", s.dir, err)
	}
	var out []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
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
