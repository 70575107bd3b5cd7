package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"loanrisk/internal/config"
	"loanrisk/pkg/contracts/domain"
)

// ReportWriter writes run reports as JSON and CSV under the reports directory
type ReportWriter struct {
	csv *CSVWriter
}

// NewReportWriter creates a report writer sharing csv's path resolution
func NewReportWriter(csv *CSVWriter) *ReportWriter {
	return &ReportWriter{csv: csv}
}

// WriteJSON writes v as indented JSON
func (r *ReportWriter) WriteJSON(filePath string, v interface{}) (string, error) {
	fullPath := r.csv.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", filePath, err)
	}
	if err := os.WriteFile(fullPath, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// WriteSampleReport writes sample_report.json and temporal_distribution.csv
func (r *ReportWriter) WriteSampleReport(report *domain.SampleReport) ([]string, error) {
	jsonPath, err := r.WriteJSON(config.SampleReportJSON, report)
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(report.Temporal))
	for _, s := range report.Temporal {
		records = append(records, []string{
			formatInt(s.Year),
			formatFloat(s.PopulationPct, 1),
			formatFloat(s.SamplePct, 1),
			formatFloat(s.DiffPP, 1),
		})
	}
	if err := r.csv.WriteCSV(config.TemporalReportCSV, WriteOptions{
		Headers: []string{"year", "population_pct", "sample_pct", "diff_pp"},
		Records: records,
	}); err != nil {
		return nil, err
	}

	return []string{jsonPath, r.csv.resolvePath(config.TemporalReportCSV)}, nil
}

// WriteCVReport writes cv_report.json, cv_metrics.csv and feature_importance.csv
func (r *ReportWriter) WriteCVReport(report *domain.CVReport) ([]string, error) {
	jsonPath, err := r.WriteJSON(config.CVReportJSON, report)
	if err != nil {
		return nil, err
	}

	if err := r.csv.WriteCSV(config.CVMetricsCSV, WriteOptions{
		Headers: foldHeaders,
		Records: foldRecords(report),
	}); err != nil {
		return nil, err
	}

	importance := make([][]string, 0, len(report.Importance))
	for _, fi := range report.Importance {
		importance = append(importance, []string{fi.Feature, formatFloat(fi.Gain, 4), formatInt(fi.Splits)})
	}
	if err := r.csv.WriteCSV(config.FeatureImportanceCSV, WriteOptions{
		Headers: []string{"feature", "gain", "splits"},
		Records: importance,
	}); err != nil {
		return nil, err
	}

	return []string{
		jsonPath,
		r.csv.resolvePath(config.CVMetricsCSV),
		r.csv.resolvePath(config.FeatureImportanceCSV),
	}, nil
}

var foldHeaders = []string{
	"fold", "train_rows", "valid_rows", "excluded_rows", "auc", "log_loss", "brier",
	"ks", "precision", "recall", "f1", "accuracy", "default_rate",
}

func foldRow(fold string, m domain.FoldMetrics) []string {
	return []string{
		fold,
		formatInt(m.TrainRows),
		formatInt(m.ValidRows),
		formatInt(m.ExcludedRows),
		formatFloat(m.AUC, 4),
		formatFloat(m.LogLoss, 4),
		formatFloat(m.Brier, 4),
		formatFloat(m.KS, 4),
		formatFloat(m.Precision, 4),
		formatFloat(m.Recall, 4),
		formatFloat(m.F1, 4),
		formatFloat(m.Accuracy, 4),
		formatFloat(m.DefaultRate, 4),
	}
}

// foldRecords lists every fold followed by mean and std rows
func foldRecords(report *domain.CVReport) [][]string {
	records := make([][]string, 0, len(report.Folds)+2)
	for _, m := range report.Folds {
		records = append(records, foldRow(strconv.Itoa(m.Fold), m))
	}

	mean := domain.FoldMetrics{}
	std := domain.FoldMetrics{}
	for _, s := range report.Summary {
		setMetric(&mean, s.Metric, s.Mean)
		setMetric(&std, s.Metric, s.Std)
	}
	meanRow := foldRow("mean", mean)
	stdRow := foldRow("std", std)
	// row counts have no aggregate
	for i := 1; i <= 3; i++ {
		meanRow[i], stdRow[i] = "", ""
	}
	return append(records, meanRow, stdRow)
}

func setMetric(m *domain.FoldMetrics, name string, v float64) {
	switch name {
	case "auc":
		m.AUC = v
	case "log_loss":
		m.LogLoss = v
	case "brier":
		m.Brier = v
	case "ks":
		m.KS = v
	case "precision":
		m.Precision = v
	case "recall":
		m.Recall = v
	case "f1":
		m.F1 = v
	case "accuracy":
		m.Accuracy = v
	case "default_rate":
		m.DefaultRate = v
	}
}
