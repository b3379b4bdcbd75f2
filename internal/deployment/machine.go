package deployment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StateName identifies a state of the machine.
type StateName string

// Kind is the behaviour of a state.
type Kind string

const (
	KindTask    Kind = "Task"
	KindWait    Kind = "Wait"
	KindSucceed Kind = "Succeed"
	KindFail    Kind = "Fail"
)

// StateDefinition is one node of the graph.
type StateDefinition struct {
	Name StateName
	Kind Kind

	// Next lists the states a task may hand over to. A wait state has
	// exactly one successor. Every task may also go to the failure state.
	Next []StateName

	// Wait is the dwell time of a wait state.
	Wait time.Duration

	// ResultKey is the context key the state writes, if any. Observes marks
	// it as a refreshable observation.
	ResultKey Key
	Observes  bool

	// Run executes a task state and returns its successor.
	Run func(c *Context) (StateName, error)
}

// MachineSpec is the declarative input of NewMachine.
type MachineSpec struct {
	Start   StateName
	Failure StateName
	States  []StateDefinition
}

// Machine is a validated state graph.
type Machine struct {
	start   StateName
	failure StateName
	order   []StateName
	states  map[StateName]*StateDefinition
}

// NewMachine builds and validates a machine.
func NewMachine(spec MachineSpec) (*Machine, error) {
	m := &Machine{
		start:   spec.Start,
		failure: spec.Failure,
		states:  make(map[StateName]*StateDefinition, len(spec.States)),
	}
	for i := range spec.States {
		def := spec.States[i]
		if _, dup := m.states[def.Name]; dup {
			return nil, fmt.Errorf("state %s defined twice", def.Name)
		}
		m.states[def.Name] = &def
		m.order = append(m.order, def.Name)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the graph for dangling transitions and malformed states.
func (m *Machine) Validate() error {
	var errs []error
	if _, ok := m.states[m.start]; !ok {
		errs = append(errs, fmt.Errorf("start state %q is not defined", m.start))
	}
	if f, ok := m.states[m.failure]; !ok || f.Kind != KindFail {
		errs = append(errs, fmt.Errorf("failure state %q must be a defined Fail state", m.failure))
	}
	keys := make(map[Key]StateName)
	for _, name := range m.order {
		def := m.states[name]
		if def.Name == "" {
			errs = append(errs, errors.New("state without a name"))
		}
		switch def.Kind {
		case KindTask:
			if def.Run == nil {
				errs = append(errs, fmt.Errorf("task %s has no Run function", name))
			}
			if len(def.Next) == 0 {
				errs = append(errs, fmt.Errorf("task %s has no successor", name))
			}
		case KindWait:
			if def.Wait <= 0 {
				errs = append(errs, fmt.Errorf("wait %s must have a positive duration", name))
			}
			if len(def.Next) != 1 {
				errs = append(errs, fmt.Errorf("wait %s must have exactly one successor", name))
			}
		case KindSucceed, KindFail:
			if len(def.Next) != 0 {
				errs = append(errs, fmt.Errorf("terminal state %s cannot have successors", name))
			}
		default:
			errs = append(errs, fmt.Errorf("state %s has unknown kind %q", name, def.Kind))
		}
		for _, next := range def.Next {
			if _, ok := m.states[next]; !ok {
				errs = append(errs, fmt.Errorf("state %s transitions to undefined state %q", name, next))
			}
		}
		if def.ResultKey != "" {
			if owner, taken := keys[def.ResultKey]; taken {
				errs = append(errs, fmt.Errorf("states %s and %s both write %s", owner, name, def.ResultKey))
			}
			keys[def.ResultKey] = name
		}
	}
	return errors.Join(errs...)
}

// State returns the definition of name.
func (m *Machine) State(name StateName) (*StateDefinition, bool) {
	def, ok := m.states[name]
	return def, ok
}

// Start returns the entry state.
func (m *Machine) Start() StateName {
	return m.start
}

// States returns the state names in definition order.
func (m *Machine) States() []StateName {
	return append([]StateName(nil), m.order...)
}

// allows reports whether from may hand over to to.
func (m *Machine) allows(from, to StateName) bool {
	if to == m.failure {
		return true
	}
	for _, next := range m.states[from].Next {
		if next == to {
			return true
		}
	}
	return false
}

// Describe renders the graph, one state per line.
func (m *Machine) Describe() string {
	var b strings.Builder
	for _, name := range m.order {
		def := m.states[name]
		fmt.Fprintf(&b, "%-34s %-7s", name, def.Kind)
		if def.Kind == KindWait {
			fmt.Fprintf(&b, " %-5s", def.Wait)
		}
		if len(def.Next) > 0 {
			next := make([]string, len(def.Next))
			for i, n := range def.Next {
				next[i] = string(n)
			}
			fmt.Fprintf(&b, " -> %s", strings.Join(next, " | "))
		}
		if def.ResultKey != "" {
			kind := "records"
			if def.Observes {
				kind = "observes"
			}
			fmt.Fprintf(&b, " (%s %s)", kind, def.ResultKey)
		}
		b.WriteString("\n")
	}
	return b.String()
}
