package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/edgeforge/internal/deployment"
)

// Execute is a function that drives one execution, reporting to observer.
type Execute func(observer deployment.Observer) (*deployment.Result, error)

// Run shows the dashboard while execute runs in the background. Quitting the
// dashboard does not stop the execution; its result is still returned.
func Run(m Model, execute Execute, opts ...tea.ProgramOption) (*deployment.Result, error) {
	p := tea.NewProgram(m, opts...)

	type outcome struct {
		result *deployment.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := execute(NewObserver(p))
		done <- outcome{result, err}
		p.Send(ResultMsg{Result: result, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	out := <-done
	return out.result, out.err
}
