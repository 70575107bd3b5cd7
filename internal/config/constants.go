package config

import "time"

// Application constants
const (
	AppName    = "loanrisk"
	AppVersion = "1.0.0"

	// Dates are exchanged as ISO days everywhere outside the raw input
	DateLayout = "2006-01-02"

	// Sampling defaults
	DefaultSampleFrom = "2015-01-01"
	DefaultSampleTo   = "2020-12-31"
	DefaultSampleSize = 600000
	DefaultSeed       = 42
	DefaultSampleFile = "lending_club_sample_2015_2020.csv.gz"

	// Files at or below this size can be committed to a public repository
	PublishLimitMB = 100.0

	// Dataset source
	DefaultDatasetID      = "ethon0426/lending-club-20072020q1"
	KaggleAPIBaseURL      = "https://www.kaggle.com/api/v1"
	KaggleCredentialsDir  = ".kaggle"
	KaggleCredentialsFile = "kaggle.json"
	DownloadTimeout       = 30 * time.Minute

	// File Paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultDownloadsDir = "data/downloads"
	DefaultSamplesDir   = "data/samples"
	DefaultReportsDir   = "data/reports"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Well-known report names
	SampleReportJSON     = "sample_report.json"
	TemporalReportCSV    = "temporal_distribution.csv"
	CVMetricsCSV         = "cv_metrics.csv"
	CVReportJSON         = "cv_report.json"
	FeatureImportanceCSV = "feature_importance.csv"
	ReportWorkbook       = "report.xlsx"
	MetricsTextfile      = "metrics.prom"
	RunManifestJSON      = "run_manifest.json"
)
