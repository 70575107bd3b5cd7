package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loanrisk/internal/config"
	"loanrisk/internal/dataset"
	"loanrisk/internal/exporter"
	"loanrisk/internal/infrastructure"
	"loanrisk/internal/validation"
	"loanrisk/pkg/contracts/domain"
)

// Runner executes pipeline commands against one configuration
type Runner struct {
	cfg       *config.Config
	paths     *config.Paths
	telemetry *infrastructure.Telemetry
	logger    *slog.Logger

	loader   *dataset.Loader
	files    *validation.FileValidator
	csv      *exporter.CSVWriter
	reports  *exporter.ReportWriter
	workbook *exporter.WorkbookWriter
}

// NewRunner creates a runner. A nil telemetry gets a disabled one.
func NewRunner(cfg *config.Config, paths *config.Paths, telemetry *infrastructure.Telemetry, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if paths == nil {
		return nil, fmt.Errorf("paths are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		var err error
		telemetry, err = infrastructure.InitializeTelemetry(config.TelemetryConfig{ServiceName: config.AppName}, logger)
		if err != nil {
			return nil, err
		}
	}

	csv := exporter.NewCSVWriter(paths, logger).WithPublishLimit(cfg.Sampling.MaxOutputMB)
	return &Runner{
		cfg:       cfg,
		paths:     paths,
		telemetry: telemetry,
		logger:    logger,
		loader:    dataset.NewLoader(logger),
		files:     validation.NewFileValidator(logger),
		csv:       csv,
		reports:   exporter.NewReportWriter(csv),
		workbook:  exporter.NewWorkbookWriter(paths, logger),
	}, nil
}

// stage runs fn inside a span, logs its outcome and records it in m
func (r *Runner) stage(ctx context.Context, m *Manifest, name string, fn func(ctx context.Context) (map[string]interface{}, error)) error {
	start := time.Now()
	ctx, end := r.telemetry.StartStage(ctx, name)
	logger := r.logger.With(slog.String("stage", name))
	logger.InfoContext(ctx, "Stage started")

	metadata, err := fn(ctx)
	end(err)
	m.RecordStage(name, start, err, metadata)

	if err != nil {
		logger.ErrorContext(ctx, "Stage failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return err
	}
	logger.InfoContext(ctx, "Stage completed", slog.Duration("duration", time.Since(start)))
	return nil
}

// finish closes the manifest, writes it with the metrics textfile and
// passes runErr through
func (r *Runner) finish(ctx context.Context, m *Manifest, runErr error) error {
	m.Finish(runErr)

	manifestPath, err := r.reports.WriteJSON(config.RunManifestJSON, m)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to write run manifest", slog.String("error", err.Error()))
	} else {
		r.logger.DebugContext(ctx, "Run manifest written", slog.String("path", manifestPath))
	}

	metricsPath := r.cfg.Telemetry.MetricsFile
	if metricsPath == "" {
		metricsPath = r.paths.GetReportPath(config.MetricsTextfile)
	}
	if err := r.telemetry.WriteMetrics(metricsPath); err != nil {
		r.logger.WarnContext(ctx, "Failed to write metrics", slog.String("error", err.Error()))
	}
	return runErr
}

// load reads a data file and records row counts
func (r *Runner) load(ctx context.Context, m *Manifest, path string) (*dataset.Table, error) {
	var table *dataset.Table
	err := r.stage(ctx, m, StageLoad, func(ctx context.Context) (map[string]interface{}, error) {
		if err := r.files.ValidateDataFile(path); err != nil {
			return nil, err
		}
		t, stats, err := r.loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		table = t
		r.telemetry.Metrics.RecordRows(ctx, StageLoad, "kept", "", stats.Rows)
		r.telemetry.Metrics.RecordRows(ctx, StageLoad, "excluded", domain.ReasonMalformedRow, stats.MalformedRows)
		return map[string]interface{}{
			"path":           path,
			"format":         string(stats.Format),
			"rows":           stats.Rows,
			"malformed_rows": stats.MalformedRows,
		}, nil
	})
	return table, err
}
