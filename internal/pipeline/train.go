package pipeline

import (
	"context"
	"log/slog"

	"loanrisk/internal/features"
	"loanrisk/internal/infrastructure"
	"loanrisk/internal/model"
	"loanrisk/internal/validation"
	"loanrisk/pkg/contracts/domain"
)

// TrainRequest describes one cross-validation run over a written sample
type TrainRequest struct {
	SamplePath string `validate:"required"`
	Folds      int    `validate:"gte=2"`
	// Parallelism overrides model.parallelism when positive
	Parallelism int `validate:"gte=0"`
}

// TrainResult is what a cross-validation run produced
type TrainResult struct {
	Report   *domain.CVReport
	Reports  []string
	Manifest *Manifest
}

// Train cross-validates the gradient boosting model on a sample
func (r *Runner) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	params := model.ParamsFromConfig(r.cfg.Model)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	spec := features.SpecFromConfig(r.cfg.Features, r.cfg.Model.Seed)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	m := NewManifest(runID(ctx), "train")
	res, err := r.train(ctx, m, req, spec, params)
	if res != nil {
		res.Manifest = m
	}
	return res, r.finish(ctx, m, err)
}

func (r *Runner) train(ctx context.Context, m *Manifest, req TrainRequest, spec features.Spec, params model.Params) (*TrainResult, error) {
	samplePath := r.paths.GetSamplePath(req.SamplePath)
	table, err := r.load(ctx, m, samplePath)
	if err != nil {
		return nil, err
	}

	parallelism := r.cfg.Model.Parallelism
	if req.Parallelism > 0 {
		parallelism = req.Parallelism
	}

	var report *domain.CVReport
	err = r.stage(ctx, m, StageCrossValidate, func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		report, err = model.CrossValidate(ctx, table, spec, params, req.Folds, model.CVOptions{
			Parallelism: parallelism,
			Logger:      r.logger,
			OnFold:      r.recordFold,
		})
		if err != nil {
			return nil, err
		}
		report.RunID = runID(ctx)
		report.SamplePath = samplePath

		for _, s := range report.Summary {
			r.telemetry.Metrics.RecordScore(ctx, s.Metric, -1, s.Mean)
		}
		return map[string]interface{}{
			"rows":     report.Rows,
			"features": report.Features,
			"folds":    report.K,
			"auc_mean": report.Summary[0].Mean,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	result := &TrainResult{Report: report}
	err = r.stage(ctx, m, StageReports, func(ctx context.Context) (map[string]interface{}, error) {
		written, err := r.reports.WriteCVReport(report)
		if err != nil {
			return nil, err
		}
		if err := r.workbook.WriteCV(report); err != nil {
			return nil, err
		}
		result.Reports = append(written, r.workbook.Path())
		m.AddOutputs(result.Reports...)
		return map[string]interface{}{"files": len(result.Reports)}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Cross-validation complete",
		slog.Int("folds", report.K),
		slog.Float64("auc_mean", report.Summary[0].Mean),
		slog.Float64("auc_std", report.Summary[0].Std))
	return result, nil
}

func (r *Runner) recordFold(ctx context.Context, f domain.FoldMetrics) {
	r.telemetry.Metrics.RecordScore(ctx, "auc", f.Fold, f.AUC)
	r.telemetry.Metrics.RecordScore(ctx, "log_loss", f.Fold, f.LogLoss)
	r.telemetry.Metrics.RecordScore(ctx, "ks", f.Fold, f.KS)
	r.telemetry.Metrics.RecordRows(ctx, StageCrossValidate, "excluded", domain.ReasonInvalidNumeric, f.ExcludedRows)
}
