package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/config/wizard"
)

// saveAndRestoreInitFactories saves and restores init factory functions.
func saveAndRestoreInitFactories(t *testing.T) {
	origFileExists := wizardFileExists
	origConfirmOverwrite := wizardConfirmOverwrite
	origRunWizard := wizardRunWizard
	origBuildConfig := wizardBuildConfig
	origWriteConfig := wizardWriteConfig

	t.Cleanup(func() {
		wizardFileExists = origFileExists
		wizardConfirmOverwrite = origConfirmOverwrite
		wizardRunWizard = origRunWizard
		wizardBuildConfig = origBuildConfig
		wizardWriteConfig = origWriteConfig
	})
}

func TestInit_Success(t *testing.T) {
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return false }
	wizardRunWizard = func(context.Context) (*wizard.WizardResult, error) {
		return &wizard.WizardResult{
			Region:            "eu-central-1",
			ThingName:         "line-3-camera",
			PublishMode:       "explicit",
			CheckpointBackend: "file",
		}, nil
	}
	var writtenPath string
	var writtenFull bool
	wizardWriteConfig = func(cfg *config.Config, path string, full bool) error {
		writtenPath = path
		writtenFull = full
		assert.Equal(t, "line-3-camera", cfg.Device.ThingName)
		return nil
	}

	var err error
	output := captureOutput(func() {
		err = Init(context.Background(), "edgeforge.yaml", true)
	})

	require.NoError(t, err)
	assert.Equal(t, "edgeforge.yaml", writtenPath)
	assert.True(t, writtenFull)
	assert.Contains(t, output, "Full output mode")
	assert.Contains(t, output, "Configuration saved!")
	assert.Contains(t, output, "line-3-camera")
	assert.Contains(t, output, "edgeforge validate")
}

func TestInit_OverwriteDeclined(t *testing.T) {
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return true }
	wizardConfirmOverwrite = func(string) (bool, error) { return false, nil }
	wizardRunWizard = func(context.Context) (*wizard.WizardResult, error) {
		t.Fatal("wizard must not run when overwrite is declined")
		return nil, nil
	}

	var err error
	output := captureOutput(func() {
		err = Init(context.Background(), "edgeforge.yaml", false)
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Aborted")
}

func TestInit_OverwriteConfirmError(t *testing.T) {
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return true }
	wizardConfirmOverwrite = func(string) (bool, error) { return false, errors.New("stdin closed") }

	err := Init(context.Background(), "edgeforge.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to confirm overwrite")
}

func TestInit_WizardCanceled(t *testing.T) {
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return false }
	wizardRunWizard = func(context.Context) (*wizard.WizardResult, error) {
		return nil, errors.New("user aborted")
	}

	var err error
	captureOutput(func() {
		err = Init(context.Background(), "edgeforge.yaml", false)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}

func TestInit_WriteError(t *testing.T) {
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return false }
	wizardRunWizard = func(context.Context) (*wizard.WizardResult, error) {
		return &wizard.WizardResult{Region: "eu-central-1"}, nil
	}
	wizardWriteConfig = func(*config.Config, string, bool) error {
		return errors.New("read-only file system")
	}

	var err error
	captureOutput(func() {
		err = Init(context.Background(), "/readonly/edgeforge.yaml", false)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config")
}

func TestPrintWelcome(t *testing.T) {
	output := captureOutput(func() {
		printWelcome(false)
	})
	assert.Contains(t, output, "edgeforge - model deployment to Greengrass devices")
	assert.Contains(t, output, "Minimal output mode")
}
