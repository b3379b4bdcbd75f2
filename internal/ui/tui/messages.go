// Package tui provides a Bubble Tea-based terminal UI that follows a
// deployment execution.
package tui

import "github.com/imamik/edgeforge/internal/deployment"

// EventMsg carries an execution event.
type EventMsg struct {
	Event deployment.Event
}

// LogMsg carries a free-form log line.
type LogMsg struct {
	Line string
}

// ResultMsg carries the outcome of the execution.
type ResultMsg struct {
	Result *deployment.Result
	Err    error
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}
