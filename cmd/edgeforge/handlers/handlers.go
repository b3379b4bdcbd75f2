// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imamik/edgeforge/internal/checkpoint"
	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/greengrass"
	"github.com/imamik/edgeforge/internal/platform/iot"
	"github.com/imamik/edgeforge/internal/platform/s3"
	"github.com/imamik/edgeforge/internal/platform/sagemaker"
	"github.com/imamik/edgeforge/internal/platform/ssm"
	"github.com/imamik/edgeforge/internal/ui/tui"
)

// Executor starts and resumes executions - matches deployment.Engine.
type Executor interface {
	Start(ctx context.Context, id string, input deployment.Input) (*deployment.Result, error)
	Resume(ctx context.Context, id string) (*deployment.Result, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findConfigFile finds edgeforge.yaml in the working directory or above.
	findConfigFile = config.FindConfigFile

	// loadConfigFile loads config from file (for testing injection).
	loadConfigFile = config.Load

	// loadAWSConfig resolves credentials for the configured region.
	loadAWSConfig = func(ctx context.Context, region string) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}

	// openStore opens the configured checkpoint store.
	openStore = checkpoint.Open

	// newServices wires the AWS adapters of an execution.
	newServices = defaultServices

	// newExecutor creates the workflow engine.
	newExecutor = func(cfg *config.Config, services deployment.Services, opts ...deployment.Option) (Executor, error) {
		return deployment.NewEngine(cfg, services, opts...)
	}

	// newLogger creates the logger behind the log observer.
	newLogger = newZapLogger

	// serveMetrics exposes /metrics on addr until the returned stop function is called.
	serveMetrics = startMetricsServer

	// runTUI runs the live dashboard.
	runTUI = tui.Run

	// isInteractiveTTY reports whether stdout is a terminal.
	isInteractiveTTY = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// newExecutionID generates ids for runs started without one.
	newExecutionID = uuid.NewString
)

// loadConfig loads configuration from the given path, or finds edgeforge.yaml
// when the path is empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file given and %w", err)
		}
		configPath = found
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}

func defaultServices(awsCfg aws.Config, cfg *config.Config) deployment.Services {
	sm := sagemaker.NewClient(awsCfg)
	gg := greengrass.NewClient(awsCfg)
	services := deployment.Services{
		Models:      sm,
		Compilation: sm.Compilation(),
		Packaging:   sm.Packaging(),
		Components:  gg,
		Devices:     iot.NewClient(awsCfg),
		Deployments: gg,
		Artifacts:   s3.NewClient(awsCfg, ""),
	}
	if cfg.DeployedModelParameter != "" {
		services.Parameters = ssm.NewClient(awsCfg)
	}
	return services
}

// newZapLogger returns a console logger on stderr. Verbose enables V(1)
// messages such as retry attempts.
func newZapLogger(verbose bool) (logr.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.DisableCaller = true
	zc.DisableStacktrace = true
	zc.Sampling = nil
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("failed to create logger: %w", err)
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

func startMetricsServer(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
