// Package exporter writes everything the pipeline leaves on disk.
//
// CSVWriter: plain and gzip CSV through a StreamWriter that renders into a
// temporary file and renames it into place. Gzip output carries no
// timestamp, so the same sample always produces the same bytes.
//
// ReportWriter: sample_report.json, temporal_distribution.csv,
// cv_report.json, cv_metrics.csv and feature_importance.csv.
//
// WorkbookWriter: report.xlsx with one sheet per report. Sampling and
// training each replace only their own sheets.
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter(paths, logger)
//	info, err := csvWriter.WriteSample(ctx, sample, "lending_club_sample_2015_2020.csv.gz")
//
//	reports := exporter.NewReportWriter(csvWriter)
//	files, err := reports.WriteSampleReport(report)
package exporter
