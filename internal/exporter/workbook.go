package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"loanrisk/internal/config"
	"loanrisk/pkg/contracts/domain"
)

// Sheet names in report.xlsx
const (
	SheetSample     = "Sample"
	SheetStrata     = "Strata"
	SheetTemporal   = "Temporal"
	SheetFolds      = "CV Folds"
	SheetImportance = "Importance"
)

// WorkbookWriter keeps report.xlsx up to date. Each run replaces only the
// sheets it owns, so sampling and training results live side by side.
type WorkbookWriter struct {
	path   string
	logger *slog.Logger
}

// NewWorkbookWriter targets report.xlsx in the reports directory
func NewWorkbookWriter(paths *config.Paths, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	path := config.ReportWorkbook
	if paths != nil {
		path = paths.GetReportPath(config.ReportWorkbook)
	}
	return &WorkbookWriter{path: path, logger: logger}
}

// Path returns the workbook location
func (w *WorkbookWriter) Path() string {
	return w.path
}

type sheet struct {
	name    string
	headers []string
	rows    [][]interface{}
}

// WriteSample replaces the sampling sheets
func (w *WorkbookWriter) WriteSample(report *domain.SampleReport) error {
	summary := [][]interface{}{
		{"range", report.Range.String()},
		{"seed", report.Seed},
		{"target_size", report.TargetSize},
		{"input_rows", report.InputRows},
		{"rows_in_range", report.RowsInRange},
		{"population_rows", report.PopulationRows},
		{"sample_rows", report.SampleRows},
		{"population_default_rate", report.PopulationDefaultRate},
		{"sample_default_rate", report.SampleDefaultRate},
		{"default_rate_diff", report.DefaultRateDiff},
		{"max_temporal_diff_pp", report.MaxTemporalDiffPP},
	}
	for _, reason := range report.Excluded.Reasons() {
		summary = append(summary, []interface{}{"excluded." + reason, report.Excluded[reason]})
	}
	if report.File != nil {
		summary = append(summary,
			[]interface{}{"file", report.File.Path},
			[]interface{}{"file_size_mb", report.File.SizeMB},
			[]interface{}{"publish_suitable", report.File.PublishSuitable})
	}

	strata := make([][]interface{}, 0, len(report.Strata))
	for _, s := range report.Strata {
		strata = append(strata, []interface{}{s.Year, int(s.Outcome), s.Population, s.Sample})
	}

	temporal := make([][]interface{}, 0, len(report.Temporal))
	for _, s := range report.Temporal {
		temporal = append(temporal, []interface{}{s.Year, s.PopulationPct, s.SamplePct, s.DiffPP})
	}

	return w.replace([]sheet{
		{name: SheetSample, headers: []string{"field", "value"}, rows: summary},
		{name: SheetStrata, headers: []string{"year", "target_default", "population", "sample"}, rows: strata},
		{name: SheetTemporal, headers: []string{"year", "population_pct", "sample_pct", "diff_pp"}, rows: temporal},
	})
}

// WriteCV replaces the cross-validation sheets
func (w *WorkbookWriter) WriteCV(report *domain.CVReport) error {
	folds := make([][]interface{}, 0, len(report.Folds)+2)
	for _, rec := range foldRecords(report) {
		row := make([]interface{}, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		folds = append(folds, row)
	}

	importance := make([][]interface{}, 0, len(report.Importance))
	for _, fi := range report.Importance {
		importance = append(importance, []interface{}{fi.Feature, fi.Gain, fi.Splits})
	}

	return w.replace([]sheet{
		{name: SheetFolds, headers: foldHeaders, rows: folds},
		{name: SheetImportance, headers: []string{"feature", "gain", "splits"}, rows: importance},
	})
}

func (w *WorkbookWriter) replace(sheets []sheet) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for _, s := range sheets {
		if idx, _ := f.GetSheetIndex(s.name); idx >= 0 {
			if err := f.DeleteSheet(s.name); err != nil {
				return fmt.Errorf("failed to replace sheet %s: %w", s.name, err)
			}
		}
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return err
		}
	}

	// drop the placeholder sheet of a fresh workbook
	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 && len(f.GetSheetList()) > 1 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}

	w.logger.Info("Workbook updated",
		slog.String("path", w.path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func (w *WorkbookWriter) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", w.path, err)
		}
		return f, nil
	}
	return excelize.NewFile(), nil
}

func writeSheet(f *excelize.File, s sheet) error {
	header := make([]interface{}, len(s.headers))
	for i, h := range s.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", s.name, err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(s.headers), 1)
		f.SetCellStyle(s.name, "A1", last, style)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(s.name, cell, &r); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, s.name, err)
		}
	}
	return nil
}
