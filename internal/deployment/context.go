package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// Key names a result in the workflow context.
type Key string

// Result keys, one per state that produces a result.
const (
	KeyModelSource               Key = "modelSource"
	KeyCompilationJob            Key = "compilationJob"
	KeyCompilationStatus         Key = "compilationStatus"
	KeyModelComponentVersion     Key = "modelComponentVersion"
	KeyPackagingJob              Key = "packagingJob"
	KeyPackagingStatus           Key = "packagingStatus"
	KeyTargetDevice              Key = "targetDevice"
	KeyInferenceComponentVersion Key = "inferenceComponentVersion"
	KeyPublishedComponent        Key = "publishedComponent"
	KeyDeployment                Key = "deployment"
	KeyDeploymentStatus          Key = "deploymentStatus"
	KeyDeviceHealth              Key = "deviceHealth"
	KeyDeployedVersion           Key = "deployedVersion"
)

type entry struct {
	Key      Key             `json:"key"`
	Value    json.RawMessage `json:"value"`
	Observed bool            `json:"observed,omitempty"`
}

// WorkflowContext is the append-only document states write their results
// to. A key written with Record can never change. A key written with Observe
// belongs to one polling state and may be refreshed by it, but never turned
// into a recorded key or vice versa.
type WorkflowContext struct {
	mu      sync.RWMutex
	entries []entry
	index   map[Key]int

	// writes logs every successful Record and Observe in order. It is not
	// persisted.
	writes []Key
}

// NewWorkflowContext returns an empty context.
func NewWorkflowContext() *WorkflowContext {
	return &WorkflowContext{index: make(map[Key]int)}
}

// Record stores v under key. It fails with ErrKeyExists if key is present.
func (w *WorkflowContext) Record(key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	w.index[key] = len(w.entries)
	w.entries = append(w.entries, entry{Key: key, Value: raw})
	w.writes = append(w.writes, key)
	return nil
}

// Observe stores or refreshes an observation under key. It fails with
// ErrKeyExists if key holds a recorded value.
func (w *WorkflowContext) Observe(key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if i, ok := w.index[key]; ok {
		if !w.entries[i].Observed {
			return fmt.Errorf("%w: %s is not an observation", ErrKeyExists, key)
		}
		w.entries[i].Value = raw
		w.writes = append(w.writes, key)
		return nil
	}
	w.index[key] = len(w.entries)
	w.entries = append(w.entries, entry{Key: key, Value: raw, Observed: true})
	w.writes = append(w.writes, key)
	return nil
}

// writeMark returns a position in the write log for writesSince.
func (w *WorkflowContext) writeMark() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.writes)
}

// writesSince returns the keys written after mark, in order.
func (w *WorkflowContext) writesSince(mark int) []Key {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if mark >= len(w.writes) {
		return nil
	}
	return append([]Key(nil), w.writes[mark:]...)
}

// Has reports whether key is present.
func (w *WorkflowContext) Has(key Key) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.index[key]
	return ok
}

// Raw returns the encoded value under key.
func (w *WorkflowContext) Raw(key Key) (json.RawMessage, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i, ok := w.index[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), w.entries[i].Value...), true
}

// Keys returns the keys in insertion order.
func (w *WorkflowContext) Keys() []Key {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]Key, len(w.entries))
	for i, e := range w.entries {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a deep copy.
func (w *WorkflowContext) Clone() *WorkflowContext {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := NewWorkflowContext()
	for _, e := range w.entries {
		e.Value = append(json.RawMessage(nil), e.Value...)
		out.index[e.Key] = len(out.entries)
		out.entries = append(out.entries, e)
	}
	return out
}

// MarshalJSON encodes the context as an ordered list of entries.
func (w *WorkflowContext) MarshalJSON() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w.entries)
}

// UnmarshalJSON restores a context written by MarshalJSON.
func (w *WorkflowContext) UnmarshalJSON(data []byte) error {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = nil
	w.index = make(map[Key]int, len(entries))
	for _, e := range entries {
		if _, dup := w.index[e.Key]; dup {
			return fmt.Errorf("%w: %s appears twice", ErrKeyExists, e.Key)
		}
		w.index[e.Key] = len(w.entries)
		w.entries = append(w.entries, e)
	}
	return nil
}

// Get decodes the value under key into T.
func Get[T any](w *WorkflowContext, key Key) (T, error) {
	var out T
	raw, ok := w.Raw(key)
	if !ok {
		return out, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return out, nil
}

// Context is handed to every task state. It embeds the adapter context,
// which carries the execution deadline but not the caller's cancellation.
// Data is for reading earlier results; a state writes its own result only
// through Record or Observe.
type Context struct {
	context.Context
	ExecutionID string
	Input       Input
	Data        *WorkflowContext
	Config      *config.Config
	Timeouts    *config.Timeouts
	Services    Services
	Observer    Observer

	def      *StateDefinition
	deadline time.Time
	engine   *Engine
}

// State returns the name of the running state.
func (c *Context) State() StateName {
	if c.def == nil {
		return ""
	}
	return c.def.Name
}

// Record writes the result of the running state under its result key.
func (c *Context) Record(v any) error {
	key, err := c.resultKey(false)
	if err != nil {
		return err
	}
	return c.Data.Record(key, v)
}

// Observe stores or refreshes the observation of the running polling state.
func (c *Context) Observe(v any) error {
	key, err := c.resultKey(true)
	if err != nil {
		return err
	}
	return c.Data.Observe(key, v)
}

func (c *Context) resultKey(observe bool) (Key, error) {
	switch {
	case c.def == nil || c.def.ResultKey == "":
		return "", fmt.Errorf("state %s declares no result key", c.State())
	case c.def.Observes != observe && observe:
		return "", fmt.Errorf("state %s records %s and cannot observe it", c.def.Name, c.def.ResultKey)
	case c.def.Observes != observe:
		return "", fmt.Errorf("state %s observes %s and cannot record it", c.def.Name, c.def.ResultKey)
	}
	return c.def.ResultKey, nil
}

// attempt runs op once and counts it. Errors that carry no classification
// are treated as permanent.
func (c *Context) attempt(operation string, op func(ctx context.Context) error) error {
	start := c.engine.now()
	err := op(c)
	c.engine.recordAdapterCall(operation, err, c.engine.now().Sub(start).Seconds())
	if err != nil && !retry.IsTransient(err) && !retry.IsFatal(err) {
		return retry.Fatal(err)
	}
	return err
}

// call runs op under policy. Retries are logged and bounded by the
// execution deadline. A transient error that outlasts the budget is
// permanent, including under a single-attempt policy.
func (c *Context) call(operation string, policy retry.Policy, op func(ctx context.Context) error) error {
	attempt := func() error { return c.attempt(operation, op) }
	if policy.MaxAttempts <= 1 {
		err := attempt()
		if retry.IsTransient(err) {
			return retry.Fatal(fmt.Errorf("operation failed after 1 attempt: %w", err))
		}
		return err
	}
	return retry.Do(c, policy, attempt,
		retry.WithSleeper(c.engine.deadlineSleeper(c.deadline)),
		retry.WithOnRetry(func(n int, delay time.Duration, err error) {
			c.engine.recordRetry(operation)
			LogRetry(c.Observer, c.ExecutionID, c.State(), operation, n, delay, err)
		}))
}

// poll runs a single observation. A transient error keeps its class so the
// polling state can wait and observe again.
func (c *Context) poll(operation string, op func(ctx context.Context) error) error {
	return c.attempt(operation, op)
}
