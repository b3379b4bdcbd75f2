package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/ui/benchmarks"
)

// maxLogLines is the number of recent log lines kept on screen.
const maxLogLines = 6

// StateStatus is the display status of a state row.
type StateStatus int

const (
	StatePending StateStatus = iota
	StateActive
	StateDone
	StateFailed
	StateSuspended
)

// StateRow is one machine state on screen.
type StateRow struct {
	Name     deployment.StateName
	Kind     deployment.Kind
	Status   StateStatus
	Visits   int
	Retries  int
	Duration time.Duration
	Message  string
}

// Model is the Bubble Tea model for the execution dashboard.
type Model struct {
	ExecutionID string
	Region      string

	States  []StateRow
	Current deployment.StateName
	Logs    []string

	// Phase tracking for the ETA
	PhaseHistory       []benchmarks.PhaseRecord
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time
	stateStarted       time.Time

	SpinnerFrame int

	Width  int
	Height int

	Result    *deployment.Result
	Err       error
	Suspended bool
	Done      bool

	now func() time.Time
}

// NewModel creates a dashboard listing the task and wait states of m in
// definition order.
func NewModel(m *deployment.Machine, executionID, region string) Model {
	model := Model{
		ExecutionID:      executionID,
		Region:           region,
		PerformanceScale: 1.0,
		StartTime:        time.Now(),
		now:              time.Now,
	}
	for _, name := range m.States() {
		def, _ := m.State(name)
		if def.Kind == deployment.KindSucceed || def.Kind == deployment.KindFail {
			continue
		}
		model.States = append(model.States, StateRow{Name: name, Kind: def.Kind})
	}
	return model
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case LogMsg:
		m.appendLog(msg.Line)

	case ResultMsg:
		m.Result = msg.Result
		m.Err = msg.Err
		m.Done = true
		m.closePhase()
		return m, tea.Quit

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()
	}

	return m, nil
}

func (m *Model) row(name deployment.StateName) *StateRow {
	for i := range m.States {
		if m.States[i].Name == name {
			return &m.States[i]
		}
	}
	return nil
}

func (m *Model) applyEvent(e deployment.Event) {
	switch e.Type {
	case deployment.EventStateEntered:
		m.Suspended = false
		m.Current = e.State
		m.stateStarted = m.now()
		m.enterPhase(benchmarks.PhaseOf(e.State))
		if r := m.row(e.State); r != nil {
			r.Status = StateActive
			r.Visits++
		}

	case deployment.EventStateCompleted:
		if r := m.row(e.State); r != nil {
			r.Status = StateDone
			r.Duration += m.now().Sub(m.stateStarted)
			r.Message = ""
		}

	case deployment.EventStateFailed:
		if r := m.row(e.State); r != nil {
			r.Status = StateFailed
			r.Message = e.Message
		}

	case deployment.EventRetryAttempt:
		if r := m.row(e.State); r != nil {
			r.Retries++
			r.Message = e.Message
		}

	case deployment.EventWaitSuspended:
		m.Suspended = true
		if r := m.row(e.State); r != nil {
			r.Status = StateSuspended
		}
	}

	if e.Message != "" && e.Type != deployment.EventStateEntered && e.Type != deployment.EventStateCompleted {
		m.appendLog(string(e.State) + ": " + e.Message)
	}
}

func (m *Model) appendLog(line string) {
	m.Logs = append(m.Logs, line)
	if len(m.Logs) > maxLogLines {
		m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
	}
}

// enterPhase closes the running phase record when the phase changes.
func (m *Model) enterPhase(phase string) {
	if phase == "" {
		return
	}
	if n := len(m.PhaseHistory); n > 0 {
		last := &m.PhaseHistory[n-1]
		if last.Phase == phase && last.EndedAt == nil {
			return
		}
	}
	m.closePhase()
	m.PhaseHistory = append(m.PhaseHistory, benchmarks.PhaseRecord{Phase: phase, StartedAt: m.now()})
}

func (m *Model) closePhase() {
	if n := len(m.PhaseHistory); n > 0 && m.PhaseHistory[n-1].EndedAt == nil {
		end := m.now()
		m.PhaseHistory[n-1].EndedAt = &end
	}
}

func (m *Model) currentPhase() (string, time.Duration) {
	n := len(m.PhaseHistory)
	if n == 0 || m.PhaseHistory[n-1].EndedAt != nil {
		return "", 0
	}
	last := m.PhaseHistory[n-1]
	return last.Phase, m.now().Sub(last.StartedAt)
}

func (m *Model) updateETA() {
	phase, elapsed := m.currentPhase()
	if phase == "" || m.Done {
		m.EstimatedRemaining = 0
		return
	}
	m.PerformanceScale = benchmarks.PerformanceScale(phase, elapsed, m.PhaseHistory)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(phase, elapsed, m.PhaseHistory, m.PerformanceScale)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
