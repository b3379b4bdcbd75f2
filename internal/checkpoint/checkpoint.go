package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrNotFound is returned by Load when no checkpoint exists for an id.
var ErrNotFound = errors.New("checkpoint not found")

var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Status is the lifecycle status of an execution.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusSuspended Status = "Suspended"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
)

// Terminal reports whether the execution has finished.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Record is the persisted snapshot of one execution.
type Record struct {
	ExecutionID string          `json:"executionId"`
	Status      Status          `json:"status"`
	State       string          `json:"state"`
	Data        json.RawMessage `json:"data"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Store persists checkpoint records. Save replaces any previous record of the
// same execution. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, executionID string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
}

// ValidateID checks that an execution id is usable as a file name, an object
// key segment and a resource name suffix.
func ValidateID(executionID string) error {
	if !idRegex.MatchString(executionID) {
		return fmt.Errorf("invalid execution id %q: must match %s", executionID, idRegex)
	}
	return nil
}

func (r *Record) validate() error {
	if err := ValidateID(r.ExecutionID); err != nil {
		return err
	}
	if r.State == "" {
		return fmt.Errorf("checkpoint %s has no state", r.ExecutionID)
	}
	return nil
}

func clone(r Record) Record {
	if r.Data != nil {
		r.Data = append(json.RawMessage(nil), r.Data...)
	}
	return r
}
