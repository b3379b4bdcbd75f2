package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	wizardFileExists       = wizard.FileExists
	wizardConfirmOverwrite = wizard.ConfirmOverwrite
	wizardRunWizard        = wizard.RunWizard
	wizardBuildConfig      = wizard.BuildConfig
	wizardWriteConfig      = wizard.WriteConfig
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string, fullOutput bool) error {
	if wizardFileExists(outputPath) {
		ok, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			fmt.Println("Aborted. Existing configuration left untouched.")
			return nil
		}
	}

	printWelcome(fullOutput)

	result, err := wizardRunWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizardBuildConfig(result)

	if err := wizardWriteConfig(cfg, outputPath, fullOutput); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)

	return nil
}

// printWelcome prints the welcome message.
func printWelcome(fullOutput bool) {
	fmt.Println()
	fmt.Println("edgeforge - model deployment to Greengrass devices")
	fmt.Println("==================================================")
	fmt.Println()
	fmt.Println("This wizard creates a deployment configuration.")
	if fullOutput {
		fmt.Println("Full output mode: every option is written with its default.")
	} else {
		fmt.Println("Minimal output mode: only your answers are written.")
	}
	fmt.Println()
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Deployment Summary")
	fmt.Println("------------------")
	fmt.Printf("  Region:       %s\n", cfg.Region)
	if cfg.ModelPackageGroupName != "" {
		fmt.Printf("  Model group:  %s\n", cfg.ModelPackageGroupName)
	}
	fmt.Printf("  Device:       %s\n", cfg.Device.ThingName)
	if cfg.Packaging.PublishMode != "" {
		fmt.Printf("  Publish mode: %s\n", cfg.Packaging.PublishMode)
	}
	if cfg.Components.EdgeManager != nil {
		fmt.Printf("  Edge manager: fleet %s\n", cfg.Components.EdgeManager.DeviceFleetName)
	}
	if cfg.Checkpoint.Backend != "" {
		fmt.Printf("  Checkpoints:  %s\n", cfg.Checkpoint.Backend)
	}
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s if needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Check the configuration and the deployment workflow:")
	fmt.Println("     edgeforge validate")
	fmt.Println()
	fmt.Println("  3. Deploy the latest approved model:")
	fmt.Println("     edgeforge run")
	fmt.Println()
}
