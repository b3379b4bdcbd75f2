package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "edgeforge", cmd.Use)
	assert.Equal(t, "Deploy SageMaker models to Greengrass edge devices", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"init",
		"validate",
		"run",
		"resume",
		"status",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestRun_Flags(t *testing.T) {
	cmd := Run()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"event", "e", ""},
		{"execution-id", "", ""},
		{"tui", "", "false"},
		{"metrics-addr", "", ""},
		{"verbose", "v", "false"},
		{"model-package-group", "", ""},
		{"invocation-source", "", ""},
		{"model-arn", "", ""},
		{"model-data-url", "", ""},
		{"packaged-artifact-uri", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag, "flag %s should exist", tt.name)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestRun_RejectsArgs(t *testing.T) {
	cmd := Run()
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
	assert.NoError(t, cmd.Args(cmd, nil))
}

func TestResume_RequiresExecutionID(t *testing.T) {
	cmd := Resume()

	assert.Equal(t, "resume <execution-id>", cmd.Use)
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"exec-1"}))
	assert.NotNil(t, cmd.Flags().Lookup("tui"))
	assert.NotNil(t, cmd.Flags().Lookup("metrics-addr"))
}

func TestStatus_Flags(t *testing.T) {
	cmd := Status()

	flag := cmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "text", flag.DefValue)
	assert.NoError(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestInit_Flags(t *testing.T) {
	cmd := Init()

	flag := cmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "edgeforge.yaml", flag.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("full"))
	assert.NotNil(t, cmd.RunE)
}

func TestValidate_ConfigFlag(t *testing.T) {
	cmd := Validate()

	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag, "config flag should exist")
	assert.Equal(t, "c", flag.Shorthand)

	remote := cmd.Flags().Lookup("remote")
	require.NotNil(t, remote)
	assert.Equal(t, "false", remote.DefValue)
}

func TestCompletion_ValidArgs(t *testing.T) {
	cmd := Completion()
	assert.Equal(t, []string{"bash", "fish", "powershell", "zsh"}, cmd.ValidArgs)
	assert.Error(t, cmd.Args(cmd, []string{"tcsh"}))
}

func TestCompletion_Generate(t *testing.T) {
	for _, shell := range completionShells() {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := Root()
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "edgeforge")
		})
	}
}

func TestSetVersionInfo(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	defer func() {
		version, commit, date = origVersion, origCommit, origDate
	}()

	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2026-01-01", date)

	var out bytes.Buffer
	cmd := Version()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "edgeforge 1.2.3")
	assert.Contains(t, out.String(), "commit:   abc123")

	out.Reset()
	cmd = Version()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1.2.3\n", out.String())
}
