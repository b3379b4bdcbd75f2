package tui

import "github.com/charmbracelet/lipgloss"

// Palette of the live view.
var (
	colorSucceeded = lipgloss.Color("#22c55e")
	colorFailed    = lipgloss.Color("#ef4444")
	colorWaiting   = lipgloss.Color("#eab308")
	colorAccent    = lipgloss.Color("#3b82f6")
	colorMuted     = lipgloss.Color("#6b7280")
	colorText      = lipgloss.Color("#f9fafb")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)
	footerStyle  = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	readyStyle   = lipgloss.NewStyle().Foreground(colorSucceeded)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFailed)
	warningStyle = lipgloss.NewStyle().Foreground(colorWaiting)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)

	progressBarFull  = readyStyle
	progressBarEmpty = dimStyle
)

// stateMarks maps a row status to its marker and style. Active rows use the
// spinner instead of a fixed marker.
var stateMarks = map[StateStatus]struct {
	mark  string
	style lipgloss.Style
}{
	StatePending:   {"[  ]", dimStyle},
	StateDone:      {"[OK]", readyStyle},
	StateFailed:    {"[!!]", failedStyle},
	StateSuspended: {"[||]", warningStyle},
	StateActive:    {"", activeStyle},
}

var spinnerFrames = []string{"[· ]", "[ ·]", "[··]", "[ ·]"}
