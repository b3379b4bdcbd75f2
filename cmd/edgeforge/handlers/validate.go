package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/util/async"
)

// Validate loads the configuration and prints the deployment workflow it
// drives. With remote set, it also checks that the AWS collaborators and the
// checkpoint store are reachable.
func Validate(ctx context.Context, configPath string, remote bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	machine, err := deployment.NewMachine(deployment.DeploymentMachine(timeouts))
	if err != nil {
		return fmt.Errorf("invalid deployment workflow: %w", err)
	}

	fmt.Println("Configuration is valid.")
	fmt.Println()
	fmt.Printf("  Region:          %s\n", cfg.Region)
	fmt.Printf("  Device:          %s\n", cfg.Device.ThingName)
	fmt.Printf("  Model component: %s\n", cfg.Components.Model.Name)
	fmt.Printf("  Inference:       %s\n", cfg.Components.Inference.Name)
	fmt.Printf("  Publish mode:    %s\n", cfg.Packaging.PublishMode)
	fmt.Printf("  Checkpoints:     %s\n", cfg.Checkpoint.Backend)
	fmt.Printf("  Deadline:        %s\n", timeouts.Execution)
	fmt.Println()
	fmt.Println("Workflow:")
	fmt.Print(machine.Describe())

	if !remote {
		return nil
	}
	return preflight(ctx, cfg)
}

func preflight(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := loadAWSConfig(ctx, cfg.Region)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Checkpoint, awsCfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer closeStore()

	storeCheck := async.Task{
		Name: fmt.Sprintf("checkpoint store (%s)", cfg.Checkpoint.Backend),
		Func: func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		},
	}
	results := deployment.Preflight(ctx, cfg, newServices(awsCfg, cfg), storeCheck)

	fmt.Println()
	fmt.Println("Preflight:")
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("  ✗ %s: %v\n", res.Name, res.Err)
			continue
		}
		fmt.Printf("  ✓ %s (%s)\n", res.Name, res.Duration.Round(time.Millisecond))
	}

	if failed := async.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d preflight checks failed", len(failed), len(results))
	}
	return nil
}
