package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/edgeforge/internal/deployment"
)

// Sender is the part of tea.Program an Observer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards execution events to a running program.
type Observer struct {
	sender Sender
	fields map[string]string
}

// NewObserver returns an observer sending to p.
func NewObserver(p Sender) *Observer {
	return &Observer{sender: p}
}

// Printf implements deployment.Observer.
func (o *Observer) Printf(format string, v ...any) {
	o.sender.Send(LogMsg{Line: fmt.Sprintf(format, v...)})
}

// Event implements deployment.Observer.
func (o *Observer) Event(event deployment.Event) {
	if len(o.fields) > 0 {
		merged := make(map[string]string, len(o.fields)+len(event.Fields))
		for k, v := range o.fields {
			merged[k] = v
		}
		for k, v := range event.Fields {
			merged[k] = v
		}
		event.Fields = merged
	}
	o.sender.Send(EventMsg{Event: event})
}

// WithFields implements deployment.Observer.
func (o *Observer) WithFields(fields map[string]string) deployment.Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Observer{sender: o.sender, fields: merged}
}
