package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/ui/tui"
)

// ExecOptions are the flags shared by run and resume.
type ExecOptions struct {
	ConfigPath  string
	TUI         bool
	MetricsAddr string
	Verbose     bool
}

// RunOptions describe a new execution. Event is a trigger event as a JSON
// document or a path to one ("-" reads stdin); the explicit fields override
// what it contains.
type RunOptions struct {
	ExecOptions
	ExecutionID string
	Event       string

	ModelPackageGroupName string
	InvocationSource      string
	ModelArn              string
	ModelDataURL          string
	PackagedArtifactURI   string
}

// driver runs one step of the engine API against an executor.
type driver func(ctx context.Context, ex Executor) (*deployment.Result, error)

// Run starts a new execution and waits for it to finish or suspend.
func Run(ctx context.Context, opts RunOptions) error {
	input, err := buildInput(opts)
	if err != nil {
		return err
	}

	id := opts.ExecutionID
	if id == "" {
		id = newExecutionID()
	}

	return execute(ctx, opts.ExecOptions, id, func(ctx context.Context, ex Executor) (*deployment.Result, error) {
		return ex.Start(ctx, id, input)
	})
}

// Resume continues a suspended or interrupted execution.
func Resume(ctx context.Context, id string, opts ExecOptions) error {
	return execute(ctx, opts, id, func(ctx context.Context, ex Executor) (*deployment.Result, error) {
		return ex.Resume(ctx, id)
	})
}

func buildInput(opts RunOptions) (deployment.Input, error) {
	var input deployment.Input
	if opts.Event != "" {
		data, err := readEvent(opts.Event)
		if err != nil {
			return input, err
		}
		input, err = deployment.ParseTriggerEvent(data)
		if err != nil {
			return input, err
		}
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&input.ModelPackageGroupName, opts.ModelPackageGroupName)
	override(&input.InvocationSource, opts.InvocationSource)
	override(&input.ModelArn, opts.ModelArn)
	override(&input.ModelDataURL, opts.ModelDataURL)
	override(&input.PackagedArtifactURI, opts.PackagedArtifactURI)
	return input, nil
}

// readEvent returns inline JSON as is and reads anything else as a file.
func readEvent(event string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(event), "{") {
		return []byte(event), nil
	}
	if event == "-" {
		data, err := readStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read event from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(event)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	return data, nil
}

// readStdin reads the event piped to "-".
var readStdin = func() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

// execute wires config, credentials, checkpoint store, observers and the
// engine, then drives one execution and reports its outcome.
func execute(ctx context.Context, opts ExecOptions, id string, drive driver) error {
	cfg, err := loadConfig(opts.ConfigPath)
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

	timeouts := config.LoadTimeouts()
	machine, err := deployment.NewMachine(deployment.DeploymentMachine(timeouts))
	if err != nil {
		return err
	}

	engineOpts := []deployment.Option{
		deployment.WithStore(store),
		deployment.WithTimeouts(timeouts),
		deployment.WithMachine(machine),
	}

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts.MetricsAddr)
		if err != nil {
			return err
		}
		defer stop()
		engineOpts = append(engineOpts, deployment.WithMetrics(true))
	}

	services := newServices(awsCfg, cfg)
	start := func(observer deployment.Observer) (*deployment.Result, error) {
		ex, err := newExecutor(cfg, services, append(engineOpts, deployment.WithObserver(observer))...)
		if err != nil {
			return nil, err
		}
		return drive(ctx, ex)
	}

	var result *deployment.Result
	if opts.TUI && isInteractiveTTY() {
		result, err = runTUI(tui.NewModel(machine, id, cfg.Region), start, tea.WithAltScreen())
	} else {
		logger, flush, lerr := newLogger(opts.Verbose)
		if lerr != nil {
			return lerr
		}
		defer flush()
		result, err = start(deployment.NewLogrObserver(logger).WithFields(map[string]string{"region": cfg.Region}))
	}

	return report(id, result, err)
}

// report prints the outcome of an execution. A Failed outcome is returned
// as an error so the process exits non-zero; a suspension is not.
func report(id string, result *deployment.Result, err error) error {
	if errors.Is(err, deployment.ErrSuspended) {
		fmt.Println()
		fmt.Printf("Execution %s suspended. Resume it with:\n", id)
		fmt.Printf("  edgeforge resume %s\n", id)
		return nil
	}
	if err != nil {
		return err
	}

	printResult(result)

	if result.Outcome == deployment.OutcomeFailed {
		if result.Failure == nil {
			return fmt.Errorf("execution %s failed", result.ExecutionID)
		}
		return fmt.Errorf("execution %s failed at %s (%s): %s",
			result.ExecutionID, result.Failure.State, result.Failure.Class, result.Failure.Cause)
	}
	return nil
}

func printResult(result *deployment.Result) {
	elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Second)

	fmt.Println()
	if result.Outcome == deployment.OutcomeSucceeded {
		fmt.Printf("Execution %s succeeded in %s\n", result.ExecutionID, elapsed)
	} else {
		fmt.Printf("Execution %s failed after %s\n", result.ExecutionID, elapsed)
	}

	if result.Context == nil {
		return
	}
	if v, err := deployment.Get[deployment.ModelSource](result.Context, deployment.KeyModelSource); err == nil {
		fmt.Printf("  Model:           %s\n", modelLabel(v))
	}
	if v, err := deployment.Get[deployment.ComponentVersion](result.Context, deployment.KeyModelComponentVersion); err == nil {
		fmt.Printf("  Model component: %s\n", v)
	}
	if v, err := deployment.Get[deployment.ComponentVersion](result.Context, deployment.KeyInferenceComponentVersion); err == nil {
		fmt.Printf("  Inference:       %s\n", v)
	}
	if v, err := deployment.Get[deployment.Device](result.Context, deployment.KeyTargetDevice); err == nil {
		fmt.Printf("  Device:          %s\n", v.ThingName)
	}
	if v, err := deployment.Get[deployment.JobHandle](result.Context, deployment.KeyDeployment); err == nil {
		fmt.Printf("  Deployment:      %s (%s)\n", v.Name, v.ID)
	}
	if v, err := deployment.Get[deployment.DeployedVersion](result.Context, deployment.KeyDeployedVersion); err == nil && v.Parameter != "" {
		fmt.Printf("  Recorded:        %s = %s\n", v.Parameter, v.Value)
	}
}

func modelLabel(m deployment.ModelSource) string {
	switch {
	case m.PackagedArtifactURI != "":
		return m.PackagedArtifactURI
	case m.Arn != "":
		return m.Arn
	default:
		return m.ModelDataURL
	}
}
