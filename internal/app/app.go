package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"loanrisk/internal/config"
	"loanrisk/internal/infrastructure"
	"loanrisk/internal/pipeline"
	"loanrisk/pkg/contracts"
)

const shutdownTimeout = 10 * time.Second

// Application holds everything one batch tool needs
type Application struct {
	Tool      string
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Runner    *pipeline.Runner
}

// New loads configuration, applies overrides (command-line flags, tests) and
// initializes the application for tool
func New(tool string, overrides func(cfg *config.Config)) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		overrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return NewWithConfig(tool, cfg)
}

// NewWithConfig initializes the application from an already loaded config
func NewWithConfig(tool string, cfg *config.Config) (*Application, error) {
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	// relative log and trace files live in the logs directory
	if cfg.Logging.Output != "console" {
		if cfg.Logging.FilePath == "" || !filepath.IsAbs(cfg.Logging.FilePath) {
			cfg.Logging.FilePath = paths.GetLogPath(tool + ".log")
		}
	}
	if cfg.Telemetry.TraceFile != "" && !filepath.IsAbs(cfg.Telemetry.TraceFile) {
		cfg.Telemetry.TraceFile = paths.GetLogPath(cfg.Telemetry.TraceFile)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = logger.With(slog.String("tool", tool))

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}

	runner, err := pipeline.NewRunner(cfg, paths, telemetry, logger)
	if err != nil {
		_ = telemetry.Shutdown(context.Background())
		return nil, err
	}

	paths.LogPathResolution(logger)
	logger.Info("Application initialized",
		slog.String("version", contracts.GetFullVersionString(tool)),
		slog.String("config_file", cfg.Paths.ConfigFile),
		slog.String("base_dir", paths.BaseDir))

	return &Application{
		Tool:      tool,
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: telemetry,
		Runner:    runner,
	}, nil
}

// Context returns a run context carrying a fresh run ID that is cancelled on
// SIGINT or SIGTERM
func (a *Application) Context() (context.Context, context.CancelFunc) {
	ctx := infrastructure.ContextWithTraceID(context.Background())
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Close flushes telemetry and closes the log file
func (a *Application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.Telemetry.Shutdown(ctx)
	if err != nil {
		a.Logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
	}
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
