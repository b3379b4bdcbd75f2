package deployment

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives log lines and structured events of executions.
type Observer interface {
	// Printf logs a free-form line.
	Printf(format string, v ...any)

	// Event emits a structured event.
	Event(event Event)

	// WithFields returns an Observer that adds fields to every event.
	WithFields(fields map[string]string) Observer
}

// Event is a structured execution event.
type Event struct {
	Type        EventType
	ExecutionID string
	State       StateName
	Message     string
	Timestamp   time.Time
	Fields      map[string]string
}

// EventType is the kind of an Event.
type EventType string

const (
	EventExecutionStarted   EventType = "execution.started"
	EventStateEntered       EventType = "state.entered"
	EventStateCompleted     EventType = "state.completed"
	EventStateFailed        EventType = "state.failed"
	EventWaitSuspended      EventType = "wait.suspended"
	EventRetryAttempt       EventType = "retry.attempt"
	EventExecutionSucceeded EventType = "execution.succeeded"
	EventExecutionFailed    EventType = "execution.failed"
)

// LogrObserver implements Observer on top of a logr.Logger.
type LogrObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogrObserver returns an observer writing to log.
func NewLogrObserver(log logr.Logger) *LogrObserver {
	return &LogrObserver{log: log, fields: map[string]string{}}
}

// Printf implements Observer.
func (o *LogrObserver) Printf(format string, v ...any) {
	o.log.Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

// Event implements Observer.
func (o *LogrObserver) Event(event Event) {
	kv := []any{"event", string(event.Type)}
	if event.ExecutionID != "" {
		kv = append(kv, "execution", event.ExecutionID)
	}
	if event.State != "" {
		kv = append(kv, "state", string(event.State))
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	switch event.Type {
	case EventStateFailed, EventExecutionFailed:
		o.log.Error(nil, event.Message, kv...)
	case EventRetryAttempt:
		o.log.V(1).Info(event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// WithFields implements Observer.
func (o *LogrObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LogrObserver{log: o.log, fields: merged}
}

func (o *LogrObserver) keysAndValues(extra map[string]string) []any {
	merged := make(map[string]string, len(o.fields)+len(extra))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

type teeObserver []Observer

// Tee returns an Observer that forwards to all observers.
func Tee(observers ...Observer) Observer {
	return teeObserver(observers)
}

func (t teeObserver) Printf(format string, v ...any) {
	for _, o := range t {
		o.Printf(format, v...)
	}
}

func (t teeObserver) Event(event Event) {
	for _, o := range t {
		o.Event(event)
	}
}

func (t teeObserver) WithFields(fields map[string]string) Observer {
	out := make(teeObserver, len(t))
	for i, o := range t {
		out[i] = o.WithFields(fields)
	}
	return out
}

// LogStateEntered logs the start of a state.
func LogStateEntered(o Observer, id string, state StateName) {
	o.Event(Event{Type: EventStateEntered, ExecutionID: id, State: state, Message: "entering state", Timestamp: time.Now()})
}

// LogStateCompleted logs a completed state and its successor.
func LogStateCompleted(o Observer, id string, state, next StateName, duration time.Duration) {
	o.Event(Event{
		Type:        EventStateCompleted,
		ExecutionID: id,
		State:       state,
		Message:     fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
		Timestamp:   time.Now(),
		Fields:      map[string]string{"next": string(next)},
	})
}

// LogStateFailed logs a failed state.
func LogStateFailed(o Observer, id string, state StateName, class FailureClass, err error) {
	o.Event(Event{
		Type:        EventStateFailed,
		ExecutionID: id,
		State:       state,
		Message:     fmt.Sprintf("failed: %v", err),
		Timestamp:   time.Now(),
		Fields:      map[string]string{"class": string(class)},
	})
}

// LogRetry logs a retry of an adapter call.
func LogRetry(o Observer, id string, state StateName, operation string, attempt int, delay time.Duration, err error) {
	o.Event(Event{
		Type:        EventRetryAttempt,
		ExecutionID: id,
		State:       state,
		Message:     fmt.Sprintf("attempt %d of %s failed, retrying in %v: %v", attempt, operation, delay, err),
		Timestamp:   time.Now(),
		Fields:      map[string]string{"operation": operation},
	})
}

// LogSuspended logs a suspension at a wait state.
func LogSuspended(o Observer, id string, state StateName) {
	o.Event(Event{Type: EventWaitSuspended, ExecutionID: id, State: state, Message: "suspended", Timestamp: time.Now()})
}
