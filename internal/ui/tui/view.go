package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/edgeforge/internal/deployment"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderStates(&b, m)
	if len(m.Logs) > 0 {
		renderLogs(&b, m)
	}
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("edgeforge: %s", m.ExecutionID)
	if m.Region != "" {
		title += fmt.Sprintf(" (%s)", m.Region)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Result != nil && m.Result.Outcome == deployment.OutcomeSucceeded:
		status += readyStyle.Render("Succeeded")
	case m.Result != nil:
		status += failedStyle.Render(failureSummary(m.Result))
	case m.Suspended:
		status += warningStyle.Render("Suspended at " + string(m.Current))
	case m.Current != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(string(m.Current))
	default:
		status += dimStyle.Render("Starting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func failureSummary(r *deployment.Result) string {
	if r.Failure == nil {
		return string(r.Outcome)
	}
	return fmt.Sprintf("Failed at %s (%s)", r.Failure.State, r.Failure.Class)
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, int(progress*100), eta)
}

func renderStates(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  States"))
	b.WriteString("\n")

	for _, row := range m.States {
		// Wait states are shown only while they are the current step.
		if row.Kind == deployment.KindWait && row.Status != StateActive && row.Status != StateSuspended {
			continue
		}
		icon, style := rowIcon(m, row)

		extra := ""
		if row.Visits > 1 {
			extra += dimStyle.Render(fmt.Sprintf(" x%d", row.Visits))
		}
		if row.Retries > 0 {
			extra += warningStyle.Render(fmt.Sprintf(" (retry %d)", row.Retries))
		}
		if row.Duration > 0 && row.Status == StateDone {
			extra += " " + dimStyle.Render(formatDuration(row.Duration))
		}
		fmt.Fprintf(b, "    %s %-34s%s\n", style(icon), style(string(row.Name)), extra)

		if row.Status == StateFailed && row.Message != "" {
			fmt.Fprintf(b, "        %s\n", failedStyle.Render(row.Message))
		}
	}
}

func rowIcon(m Model, row StateRow) (string, styleFunc) {
	marks, ok := stateMarks[row.Status]
	if !ok {
		marks = stateMarks[StatePending]
	}
	if row.Status == StateActive {
		return currentSpinner(m.SpinnerFrame), sf(marks.style)
	}
	return marks.mark, sf(marks.style)
}

func renderLogs(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent Activity"))
	b.WriteString("\n")
	for _, line := range m.Logs {
		fmt.Fprintf(b, "    %s\n", dimStyle.Render(line))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(m.now().Sub(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress returns the share of task states that completed. States
// skipped on the fast path or by the publish mode are not counted against
// a finished execution.
func calculateProgress(m Model) float64 {
	if m.Result != nil && m.Result.Outcome == deployment.OutcomeSucceeded {
		return 1.0
	}
	total, done := 0, 0
	for _, row := range m.States {
		if row.Kind != deployment.KindTask {
			continue
		}
		total++
		if row.Status == StateDone {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
