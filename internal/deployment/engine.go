package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/edgeforge/internal/checkpoint"
	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// Engine runs executions of a state machine. It is safe for concurrent use
// by distinct execution ids.
type Engine struct {
	machine       *Machine
	services      Services
	config        *config.Config
	timeouts      *config.Timeouts
	store         checkpoint.Store
	observer      Observer
	enableMetrics bool
	now           func() time.Time
	sleep         retry.Sleeper
	newID         func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the checkpoint store. The default keeps checkpoints in
// memory.
func WithStore(store checkpoint.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithObserver sets the observer receiving logs and events.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithMetrics enables Prometheus metrics recording.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.enableMetrics = enabled
	}
}

// WithTimeouts overrides the timeouts read from the environment.
func WithTimeouts(t *config.Timeouts) Option {
	return func(e *Engine) {
		e.timeouts = t
	}
}

// WithClock replaces the wall clock and the sleeper used by wait states and
// retries.
func WithClock(now func() time.Time, sleep retry.Sleeper) Option {
	return func(e *Engine) {
		e.now = now
		e.sleep = sleep
	}
}

// WithIDGenerator replaces the generator of execution ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithMachine replaces the deployment machine.
func WithMachine(m *Machine) Option {
	return func(e *Engine) {
		e.machine = m
	}
}

// NewEngine creates an engine for the edge deployment workflow.
func NewEngine(cfg *config.Config, services Services, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	e := &Engine{
		services: services,
		config:   cfg,
		store:    checkpoint.NewMemoryStore(),
		observer: NewLogrObserver(logr.Discard()),
		now:      time.Now,
		sleep:    sleepContext,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeouts == nil {
		e.timeouts = config.LoadTimeouts()
	}
	if e.machine == nil {
		m, err := NewMachine(DeploymentMachine(e.timeouts))
		if err != nil {
			return nil, fmt.Errorf("invalid deployment machine: %w", err)
		}
		e.machine = m
	}
	return e, nil
}

// Machine returns the state graph the engine runs.
func (e *Engine) Machine() *Machine {
	return e.machine
}

// Snapshot is the persisted form of an execution.
type Snapshot struct {
	Input     Input            `json:"input"`
	Context   *WorkflowContext `json:"context"`
	StartedAt time.Time        `json:"startedAt"`
	Deadline  time.Time        `json:"deadline"`
	Failure   *Failure         `json:"failure,omitempty"`
}

// DecodeSnapshot decodes the data of a checkpoint record.
func DecodeSnapshot(rec *checkpoint.Record) (*Snapshot, error) {
	snap := &Snapshot{Context: NewWorkflowContext()}
	if err := json.Unmarshal(rec.Data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint of %s: %w", rec.ExecutionID, err)
	}
	return snap, nil
}

type execution struct {
	id    string
	state StateName
	snap  *Snapshot
}

// Start runs a new execution until it reaches a terminal state or is
// suspended. An empty id is replaced by a generated one.
func (e *Engine) Start(ctx context.Context, id string, input Input) (*Result, error) {
	if id == "" {
		id = e.newID()
	}
	if err := checkpoint.ValidateID(id); err != nil {
		return nil, err
	}
	input = input.withDefaults(e.config)
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	_, err := e.store.Load(context.WithoutCancel(ctx), id)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrExecutionExists, id)
	case !errors.Is(err, checkpoint.ErrNotFound):
		return nil, fmt.Errorf("failed to look up execution %s: %w", id, err)
	}

	started := e.now()
	ex := &execution{
		id:    id,
		state: e.machine.Start(),
		snap: &Snapshot{
			Input:     input,
			Context:   NewWorkflowContext(),
			StartedAt: started,
			Deadline:  started.Add(e.timeouts.Execution),
		},
	}
	e.observer.Event(Event{
		Type:        EventExecutionStarted,
		ExecutionID: id,
		State:       ex.state,
		Message:     fmt.Sprintf("execution started, deadline %s", ex.snap.Deadline.Format(time.RFC3339)),
		Timestamp:   started,
	})
	return e.run(ctx, ex)
}

// Resume continues a suspended or interrupted execution at its saved state.
// The original deadline still applies.
func (e *Engine) Resume(ctx context.Context, id string) (*Result, error) {
	rec, err := e.store.Load(context.WithoutCancel(ctx), id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrExecutionFinished, id, rec.Status)
	}
	snap, err := DecodeSnapshot(rec)
	if err != nil {
		return nil, err
	}
	e.observer.Printf("Resuming execution %s at %s", id, rec.State)
	return e.run(ctx, &execution{id: id, state: StateName(rec.State), snap: snap})
}

// Inspect returns the checkpoint of an execution and its decoded snapshot.
func (e *Engine) Inspect(ctx context.Context, id string) (*checkpoint.Record, *Snapshot, error) {
	rec, err := e.store.Load(ctx, id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	snap, err := DecodeSnapshot(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, snap, nil
}

func (e *Engine) run(ctx context.Context, ex *execution) (*Result, error) {
	e.trackInFlight(1)
	defer e.trackInFlight(-1)

	for {
		def, ok := e.machine.State(ex.state)
		if !ok {
			return nil, fmt.Errorf("execution %s is at unknown state %q", ex.id, ex.state)
		}

		switch def.Kind {
		case KindSucceed:
			return e.finish(ctx, ex, OutcomeSucceeded)
		case KindFail:
			if ex.snap.Failure == nil {
				ex.snap.Failure = &Failure{State: ex.state, Class: ClassPermanent, Cause: "workflow failed"}
			}
			return e.finish(ctx, ex, OutcomeFailed)
		}

		if err := e.save(ctx, ex, checkpoint.StatusRunning); err != nil {
			return nil, err
		}

		if !e.now().Before(ex.snap.Deadline) {
			e.fail(ex, def.Name, ClassTimeout, ErrDeadlineExceeded)
			continue
		}

		switch def.Kind {
		case KindWait:
			if err := e.wait(ctx, ex, def); err != nil {
				return nil, err
			}
		case KindTask:
			e.runTask(ctx, ex, def)
		}
	}
}

// wait dwells in a wait state. Cancelling ctx suspends the execution.
func (e *Engine) wait(ctx context.Context, ex *execution, def *StateDefinition) error {
	d := def.Wait
	remaining := ex.snap.Deadline.Sub(e.now())
	truncated := remaining < d
	if truncated {
		d = remaining
	}

	if err := e.sleep(ctx, d); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("wait in %s failed: %w", def.Name, err)
		}
		if err := e.save(ctx, ex, checkpoint.StatusSuspended); err != nil {
			return err
		}
		LogSuspended(e.observer, ex.id, def.Name)
		return fmt.Errorf("%w at %s: %w", ErrSuspended, def.Name, ctx.Err())
	}

	if truncated {
		e.fail(ex, def.Name, ClassTimeout, ErrDeadlineExceeded)
		return nil
	}
	ex.state = def.Next[0]
	return nil
}

func (e *Engine) runTask(ctx context.Context, ex *execution, def *StateDefinition) {
	LogStateEntered(e.observer, ex.id, def.Name)
	start := e.now()

	adapterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ex.snap.Deadline.Sub(start))
	defer cancel()

	c := &Context{
		Context:     adapterCtx,
		ExecutionID: ex.id,
		Input:       ex.snap.Input,
		Data:        ex.snap.Context,
		Config:      e.config,
		Timeouts:    e.timeouts,
		Services:    e.services,
		Observer:    e.observer,
		def:         def,
		deadline:    ex.snap.Deadline,
		engine:      e,
	}
	mark := ex.snap.Context.writeMark()
	next, err := def.Run(c)
	elapsed := e.now().Sub(start)
	e.recordStateDuration(def.Name, elapsed.Seconds())

	if err == nil {
		err = checkWrites(def, ex.snap.Context.writesSince(mark))
	}
	if err == nil && !e.machine.allows(def.Name, next) {
		err = fmt.Errorf("state %s cannot transition to %q", def.Name, next)
	}
	if err != nil {
		class := ClassOf(err)
		LogStateFailed(e.observer, ex.id, def.Name, class, err)
		e.fail(ex, def.Name, class, err)
		return
	}

	LogStateCompleted(e.observer, ex.id, def.Name, next, elapsed)
	ex.state = next
}

// checkWrites rejects a state that wrote any key other than its result key.
func checkWrites(def *StateDefinition, keys []Key) error {
	for _, key := range keys {
		if key != def.ResultKey {
			return fmt.Errorf("state %s wrote %s outside its result key %q", def.Name, key, def.ResultKey)
		}
	}
	return nil
}

func (e *Engine) fail(ex *execution, state StateName, class FailureClass, err error) {
	ex.snap.Failure = &Failure{State: state, Class: class, Cause: err.Error()}
	ex.state = e.machine.failure
}

func (e *Engine) finish(ctx context.Context, ex *execution, outcome Outcome) (*Result, error) {
	if err := e.save(ctx, ex, outcome.status()); err != nil {
		return nil, err
	}

	res := &Result{
		ExecutionID: ex.id,
		Outcome:     outcome,
		Failure:     ex.snap.Failure,
		Context:     ex.snap.Context.Clone(),
		StartedAt:   ex.snap.StartedAt,
		FinishedAt:  e.now(),
	}

	var class FailureClass
	if outcome == OutcomeSucceeded {
		e.observer.Event(Event{
			Type:        EventExecutionSucceeded,
			ExecutionID: ex.id,
			State:       ex.state,
			Message:     fmt.Sprintf("execution succeeded in %v", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)),
			Timestamp:   res.FinishedAt,
		})
	} else {
		class = res.Failure.Class
		e.observer.Event(Event{
			Type:        EventExecutionFailed,
			ExecutionID: ex.id,
			State:       res.Failure.State,
			Message:     fmt.Sprintf("execution failed: %s", res.Failure.Cause),
			Timestamp:   res.FinishedAt,
			Fields:      map[string]string{"class": string(class)},
		})
	}
	e.recordExecution(outcome, class)
	return res, nil
}

// save checkpoints the execution. It runs even after ctx is cancelled.
func (e *Engine) save(ctx context.Context, ex *execution, status checkpoint.Status) error {
	data, err := json.Marshal(ex.snap)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint of %s: %w", ex.id, err)
	}
	rec := checkpoint.Record{
		ExecutionID: ex.id,
		Status:      status,
		State:       string(ex.state),
		Data:        data,
		UpdatedAt:   e.now(),
	}
	if err := e.store.Save(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("failed to checkpoint execution %s: %w", ex.id, err)
	}
	return nil
}

// deadlineSleeper refuses retry waits that would end past deadline.
func (e *Engine) deadlineSleeper(deadline time.Time) retry.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if e.now().Add(d).After(deadline) {
			return ErrDeadlineExceeded
		}
		return e.sleep(ctx, d)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
