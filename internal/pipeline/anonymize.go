package pipeline

import (
	"context"
	"log/slog"

	"loanrisk/internal/anonymize"
	"loanrisk/internal/config"
	"loanrisk/internal/dataset"
	"loanrisk/internal/infrastructure"
	"loanrisk/internal/validation"
	"loanrisk/pkg/contracts/domain"
)

// Request describes one anonymization run. Either InputPath or DatasetID
// names the source; a dataset is downloaded first.
type Request struct {
	InputPath  string `validate:"required_without=DatasetID"`
	DatasetID  string
	Range      domain.DateRange
	SampleSize int    `validate:"gt=0"`
	OutputPath string `validate:"required"`
	Seed       int64
}

// Result is what an anonymization run produced
type Result struct {
	Report   *domain.SampleReport
	File     *domain.FileInfo
	Reports  []string
	Manifest *Manifest
}

// Anonymize loads the raw dataset, filters it to the date window, draws the
// stratified sample and writes it as gzip CSV together with its reports.
// Identical requests over identical input produce byte-identical samples.
func (r *Runner) Anonymize(ctx context.Context, req Request) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	opts := r.anonymizeOptions(req)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	outputPath := r.paths.GetSamplePath(req.OutputPath)
	if err := r.files.ValidateSampleOutput(outputPath); err != nil {
		return nil, err
	}

	m := NewManifest(runID(ctx), "anonymize")
	res, err := r.anonymize(ctx, m, req, opts, outputPath)
	if res != nil {
		res.Manifest = m
	}
	return res, r.finish(ctx, m, err)
}

func (r *Runner) anonymize(ctx context.Context, m *Manifest, req Request, opts anonymize.Options, outputPath string) (*Result, error) {
	input := req.InputPath
	if req.DatasetID != "" {
		path, err := r.download(ctx, m, req.DatasetID)
		if err != nil {
			return nil, err
		}
		input = path
	}

	raw, err := r.load(ctx, m, input)
	if err != nil {
		return nil, err
	}

	var (
		sample *dataset.Table
		report *domain.SampleReport
	)
	err = r.stage(ctx, m, StageAnonymize, func(ctx context.Context) (map[string]interface{}, error) {
		a, err := anonymize.New(opts, r.logger)
		if err != nil {
			return nil, err
		}
		sample, report, err = a.Run(ctx, raw)
		if err != nil {
			return nil, err
		}
		report.RunID = runID(ctx)

		for _, reason := range report.Excluded.Reasons() {
			r.telemetry.Metrics.RecordRows(ctx, StageAnonymize, "excluded", reason, report.Excluded[reason])
		}
		r.telemetry.Metrics.RecordRows(ctx, StageAnonymize, "kept", "", report.SampleRows)
		return map[string]interface{}{
			"range":           report.Range.String(),
			"population_rows": report.PopulationRows,
			"sample_rows":     report.SampleRows,
			"excluded_rows":   report.Excluded.Total(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, m, StageWriteSample, func(ctx context.Context) (map[string]interface{}, error) {
		info, err := r.csv.WriteSample(ctx, sample, outputPath)
		if err != nil {
			return nil, err
		}
		report.File = info
		m.AddOutputs(info.Path)
		return map[string]interface{}{
			"path":             info.Path,
			"size_mb":          info.SizeMB,
			"publish_suitable": info.PublishSuitable,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Report: report, File: report.File}
	err = r.stage(ctx, m, StageReports, func(ctx context.Context) (map[string]interface{}, error) {
		written, err := r.reports.WriteSampleReport(report)
		if err != nil {
			return nil, err
		}
		if err := r.workbook.WriteSample(report); err != nil {
			return nil, err
		}
		result.Reports = append(written, r.workbook.Path())
		m.AddOutputs(result.Reports...)
		return map[string]interface{}{"files": len(result.Reports)}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Anonymization complete",
		slog.String("sample", report.File.Path),
		slog.Int("rows", report.SampleRows),
		slog.Float64("population_default_rate", report.PopulationDefaultRate),
		slog.Float64("sample_default_rate", report.SampleDefaultRate))
	return result, nil
}

// anonymizeOptions layers the request over the sampling configuration
func (r *Runner) anonymizeOptions(req Request) anonymize.Options {
	opts := anonymize.DefaultOptions()
	opts.Range = req.Range
	opts.TargetSize = req.SampleSize
	opts.Seed = req.Seed

	s := r.cfg.Sampling
	if len(s.LeakageCols) > 0 {
		opts.LeakageColumns = s.LeakageCols
	}
	if len(s.PrivacyCols) > 0 {
		opts.PrivacyColumns = s.PrivacyCols
	}
	if len(s.PseudoCols) > 0 {
		opts.PseudonymizeColumns = s.PseudoCols
	}
	if s.PseudonymKey != "" {
		opts.PseudonymKey = []byte(s.PseudonymKey)
	} else if len(opts.PseudonymizeColumns) > 0 {
		r.logger.Warn("no pseudonym key configured, dropping identifier columns",
			slog.Any("columns", opts.PseudonymizeColumns))
		opts.PrivacyColumns = append(append([]string(nil), opts.PrivacyColumns...), opts.PseudonymizeColumns...)
		opts.PseudonymizeColumns = nil
	}
	return opts
}

// RequestFromConfig fills a request from the sampling section
func RequestFromConfig(s config.SamplingConfig) (Request, error) {
	rng, err := domain.NewDateRange(s.From, s.To)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Range:      rng,
		SampleSize: s.TargetSize,
		OutputPath: s.OutputFile,
		Seed:       s.Seed,
	}, nil
}

func runID(ctx context.Context) string {
	return infrastructure.GetTraceID(ctx)
}
