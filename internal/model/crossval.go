package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	"golang.org/x/sync/errgroup"

	"loanrisk/internal/dataset"
	"loanrisk/internal/features"
	"loanrisk/pkg/contracts/domain"
)

// MetricNames lists the aggregated metrics in report order
var MetricNames = []string{
	"auc", "log_loss", "brier", "ks", "precision", "recall", "f1", "accuracy", "default_rate",
}

// CVOptions tunes a cross-validation run
type CVOptions struct {
	// Parallelism bounds concurrently trained folds. Values below 1 mean 1.
	Parallelism int
	Logger      *slog.Logger
	// OnFold is called once per finished fold, possibly concurrently
	OnFold func(ctx context.Context, m domain.FoldMetrics)
}

type foldResult struct {
	metrics    domain.FoldMetrics
	importance []Importance
	features   int
}

// CrossValidate runs stratified k-fold evaluation. Every fold fits the
// feature pipeline on its training part only and applies that fitted set,
// unchanged, to its validation part. Results do not depend on Parallelism.
func CrossValidate(ctx context.Context, t *dataset.Table, spec features.Spec, p Params, k int, opts CVOptions) (*domain.CVReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := t.Require("model", append(spec.InputColumns(), spec.Target)...); err != nil {
		return nil, err
	}

	// rows without a readable target cannot be stratified
	targetIdx := t.Index(spec.Target)
	var y []float64
	labelled := t.Filter(func(_ int, row []string) bool {
		o, err := domain.ParseOutcome(row[targetIdx])
		if err != nil {
			return false
		}
		y = append(y, float64(o))
		return true
	})
	unlabelled := t.Len() - labelled.Len()
	if unlabelled > 0 {
		logger.Warn("rows with invalid target excluded from cross-validation",
			slog.Int("rows", unlabelled))
	}

	folds, err := StratifiedKFold(y, k, p.Seed)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	logger.Info("cross-validation started",
		slog.Int("rows", labelled.Len()),
		slog.Int("folds", k),
		slog.Int("parallelism", parallelism))

	results := make([]foldResult, k)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, valid := range folds {
		g.Go(func() error {
			start := time.Now()
			res, err := runFold(gctx, labelled, complement(labelled.Len(), valid), valid, spec, p)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}
			res.metrics.Fold = i + 1
			results[i] = res

			logger.Info("fold complete",
				slog.Int("fold", i+1),
				slog.Int("train_rows", res.metrics.TrainRows),
				slog.Int("valid_rows", res.metrics.ValidRows),
				slog.Float64("auc", res.metrics.AUC),
				slog.Duration("duration", time.Since(start)))
			if opts.OnFold != nil {
				opts.OnFold(gctx, res.metrics)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := newReport(results, labelled.Len())

	logger.Info("cross-validation complete",
		slog.Float64("auc_mean", report.Summary[0].Mean),
		slog.Float64("auc_std", report.Summary[0].Std))
	return report, nil
}

// newReport assembles fold results in fold order. Features is the widest
// fold matrix, since one-hot levels can differ between training parts.
func newReport(results []foldResult, rows int) *domain.CVReport {
	report := &domain.CVReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
		K:           len(results),
	}
	for _, r := range results {
		report.Folds = append(report.Folds, r.metrics)
		report.Features = max(report.Features, r.features)
	}
	report.Summary = Summarize(report.Folds)
	report.Importance = aggregateImportance(results)
	return report
}

func runFold(ctx context.Context, t *dataset.Table, trainIdx, validIdx []int, spec features.Spec, p Params) (foldResult, error) {
	fitted, train, err := features.FitTransform(t.Take(trainIdx), spec)
	if err != nil {
		return foldResult{}, err
	}
	valid, err := fitted.Transform(t.Take(validIdx))
	if err != nil {
		return foldResult{}, err
	}

	booster, err := Train(ctx, train.X, train.Y, train.Names, p)
	if err != nil {
		return foldResult{}, err
	}

	prob, err := booster.PredictProba(valid.X)
	if err != nil {
		return foldResult{}, err
	}
	m, err := Evaluate(valid.Y, prob, p.Threshold)
	if err != nil {
		return foldResult{}, err
	}
	m.TrainRows = len(train.Y)
	m.ExcludedRows = train.ExcludedRows + valid.ExcludedRows
	return foldResult{
		metrics:    m,
		importance: booster.FeatureImportance(),
		features:   len(train.Names),
	}, nil
}

// Summarize returns the mean and population standard deviation of every
// metric across folds
func Summarize(folds []domain.FoldMetrics) []domain.MetricSummary {
	out := make([]domain.MetricSummary, 0, len(MetricNames))
	values := make([]float64, len(folds))
	for _, name := range MetricNames {
		for i, f := range folds {
			values[i] = metricValue(f, name)
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		out = append(out, domain.MetricSummary{Metric: name, Mean: mean, Std: std})
	}
	return out
}

func metricValue(m domain.FoldMetrics, name string) float64 {
	switch name {
	case "auc":
		return m.AUC
	case "log_loss":
		return m.LogLoss
	case "brier":
		return m.Brier
	case "ks":
		return m.KS
	case "precision":
		return m.Precision
	case "recall":
		return m.Recall
	case "f1":
		return m.F1
	case "accuracy":
		return m.Accuracy
	case "default_rate":
		return m.DefaultRate
	}
	return 0
}

// aggregateImportance averages gain per feature over folds and totals splits.
// Features missing from a fold (an unseen one-hot level) count as zero there.
func aggregateImportance(results []foldResult) []domain.FeatureImportance {
	gain := map[string]float64{}
	splits := map[string]int{}
	for _, r := range results {
		for _, imp := range r.importance {
			gain[imp.Feature] += imp.Gain
			splits[imp.Feature] += imp.Splits
		}
	}

	out := make([]domain.FeatureImportance, 0, len(gain))
	for name, g := range gain {
		out = append(out, domain.FeatureImportance{
			Feature: name,
			Gain:    g / float64(len(results)),
			Splits:  splits[name],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain > out[j].Gain
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}
