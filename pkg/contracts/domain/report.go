package domain

import "time"

// FileInfo describes a written output file
type FileInfo struct {
	Path      string  `json:"path"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Records   int     `json:"records"`
	// PublishSuitable is true when the file fits the public repository limit
	PublishSuitable bool `json:"publish_suitable"`
}

// StratumSize is the population and sample count of one (year, outcome) stratum
type StratumSize struct {
	Year       int     `json:"year"`
	Outcome    Outcome `json:"outcome"`
	Population int     `json:"population"`
	Sample     int     `json:"sample"`
}

// TemporalShare compares the share of one issue year in population and sample
type TemporalShare struct {
	Year          int     `json:"year"`
	PopulationPct float64 `json:"population_pct"`
	SamplePct     float64 `json:"sample_pct"`
	DiffPP        float64 `json:"diff_pp"`
}

// SampleReport summarises one anonymization run
type SampleReport struct {
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Range       DateRange `json:"range"`
	Seed        int64     `json:"seed"`
	TargetSize  int       `json:"target_size"`

	InputRows      int       `json:"input_rows"`
	RowsInRange    int       `json:"rows_in_range"`
	PopulationRows int       `json:"population_rows"`
	SampleRows     int       `json:"sample_rows"`
	Excluded       RowIssues `json:"excluded"`

	DroppedColumns       []string `json:"dropped_columns"`
	PseudonymizedColumns []string `json:"pseudonymized_columns,omitempty"`
	OutputColumns        int      `json:"output_columns"`

	PopulationDefaultRate float64 `json:"population_default_rate"`
	SampleDefaultRate     float64 `json:"sample_default_rate"`
	DefaultRateDiff       float64 `json:"default_rate_diff"`

	Strata            []StratumSize   `json:"strata"`
	Temporal          []TemporalShare `json:"temporal"`
	MaxTemporalDiffPP float64         `json:"max_temporal_diff_pp"`

	File *FileInfo `json:"file,omitempty"`
}

// FoldMetrics holds evaluation scores for one validation fold
type FoldMetrics struct {
	Fold         int     `json:"fold"`
	TrainRows    int     `json:"train_rows"`
	ValidRows    int     `json:"valid_rows"`
	ExcludedRows int     `json:"excluded_rows"`
	AUC          float64 `json:"auc"`
	LogLoss      float64 `json:"log_loss"`
	Brier        float64 `json:"brier"`
	KS           float64 `json:"ks"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
	Accuracy     float64 `json:"accuracy"`
	DefaultRate  float64 `json:"default_rate"`
}

// MetricSummary aggregates one metric over folds
type MetricSummary struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// FeatureImportance is the split gain attributed to a feature
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
	Splits  int     `json:"splits"`
}

// CVReport summarises a cross-validation run
type CVReport struct {
	RunID       string              `json:"run_id,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	SamplePath  string              `json:"sample_path,omitempty"`
	Rows        int                 `json:"rows"`
	Features    int                 `json:"features"`
	K           int                 `json:"k"`
	Folds       []FoldMetrics       `json:"folds"`
	Summary     []MetricSummary     `json:"summary"`
	Importance  []FeatureImportance `json:"importance"`
}
