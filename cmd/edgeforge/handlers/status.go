package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"sigs.k8s.io/yaml"

	"github.com/imamik/edgeforge/internal/checkpoint"
	"github.com/imamik/edgeforge/internal/deployment"
)

// Output formats of the status command.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// StatusReport is the status of one execution for structured output.
type StatusReport struct {
	ExecutionID string                     `json:"executionId"`
	Status      checkpoint.Status          `json:"status"`
	State       string                     `json:"state"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
	StartedAt   time.Time                  `json:"startedAt"`
	Deadline    time.Time                  `json:"deadline"`
	Input       deployment.Input           `json:"input"`
	Failure     *deployment.Failure        `json:"failure,omitempty"`
	Results     map[string]json.RawMessage `json:"results,omitempty"`
}

// ExecutionSummary is one line of the execution list.
type ExecutionSummary struct {
	ExecutionID string            `json:"executionId"`
	Status      checkpoint.Status `json:"status"`
	State       string            `json:"state"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	statusErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672")).Bold(true)
	statusWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
)

// Status prints the checkpoint of an execution, or lists all executions when
// id is empty.
func Status(ctx context.Context, configPath, id, output string) error {
	switch output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", output)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.Region)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Checkpoint, awsCfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer closeStore()

	if id == "" {
		return listExecutions(ctx, store, output)
	}

	rec, err := store.Load(ctx, id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return fmt.Errorf("%w: %s", deployment.ErrExecutionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	report, err := buildStatusReport(rec)
	if err != nil {
		return err
	}

	switch output {
	case OutputJSON:
		return printJSON(report)
	case OutputYAML:
		return printYAML(report)
	default:
		printStatusText(report, isInteractiveTTY())
		return nil
	}
}

func buildStatusReport(rec *checkpoint.Record) (*StatusReport, error) {
	snap, err := deployment.DecodeSnapshot(rec)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ExecutionID: rec.ExecutionID,
		Status:      rec.Status,
		State:       rec.State,
		UpdatedAt:   rec.UpdatedAt,
		StartedAt:   snap.StartedAt,
		Deadline:    snap.Deadline,
		Input:       snap.Input,
		Failure:     snap.Failure,
	}
	if keys := snap.Context.Keys(); len(keys) > 0 {
		report.Results = make(map[string]json.RawMessage, len(keys))
		for _, key := range keys {
			if raw, ok := snap.Context.Raw(key); ok {
				report.Results[string(key)] = raw
			}
		}
	}
	return report, nil
}

func listExecutions(ctx context.Context, store checkpoint.Store, output string) error {
	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	summaries := make([]ExecutionSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, ExecutionSummary{
			ExecutionID: rec.ExecutionID,
			Status:      rec.Status,
			State:       rec.State,
			UpdatedAt:   rec.UpdatedAt,
		})
	}

	switch output {
	case OutputJSON:
		return printJSON(summaries)
	case OutputYAML:
		return printYAML(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No executions found.")
		return nil
	}
	fmt.Printf("%-38s %-10s %-34s %s\n", "EXECUTION", "STATUS", "STATE", "UPDATED")
	for _, s := range summaries {
		fmt.Printf("%-38s %-10s %-34s %s\n", s.ExecutionID, s.Status, s.State, s.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// printStatusText renders the report for humans, styled when stdout is a
// terminal.
func printStatusText(r *StatusReport, styled bool) {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}
	line := func(label, value string) {
		fmt.Printf("  %s %s\n", render(statusLabelStyle, fmt.Sprintf("%-12s", label+":")), value)
	}

	fmt.Println(render(statusTitleStyle, "Execution "+r.ExecutionID))
	fmt.Println(strings.Repeat("─", 40))

	statusText := string(r.Status)
	switch r.Status {
	case checkpoint.StatusSucceeded:
		statusText = render(statusOKStyle, statusText)
	case checkpoint.StatusFailed:
		statusText = render(statusErrStyle, statusText)
	case checkpoint.StatusSuspended:
		statusText = render(statusWarnStyle, statusText)
	}
	line("Status", statusText)
	line("State", r.State)
	line("Started", r.StartedAt.Format(time.RFC3339))
	line("Deadline", r.Deadline.Format(time.RFC3339))
	line("Updated", r.UpdatedAt.Format(time.RFC3339))

	if r.Failure != nil {
		fmt.Println()
		line("Failed at", string(r.Failure.State))
		line("Class", string(r.Failure.Class))
		line("Cause", r.Failure.Cause)
	}

	if len(r.Results) > 0 {
		fmt.Println()
		fmt.Println(render(statusTitleStyle, "Results"))
		keys := make([]string, 0, len(r.Results))
		for k := range r.Results {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s %s\n", render(statusLabelStyle, fmt.Sprintf("%-26s", k)), string(r.Results[k]))
		}
	}

	if r.Status == checkpoint.StatusSuspended || r.Status == checkpoint.StatusRunning {
		fmt.Println()
		fmt.Printf("Resume with: edgeforge resume %s\n", r.ExecutionID)
	}
}
