package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LOANRISK"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Sampling  SamplingConfig  `yaml:"sampling" envconfig:"SAMPLING"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Model     ModelConfig     `yaml:"model" envconfig:"MODEL"`
	Kaggle    KaggleConfig    `yaml:"kaggle" envconfig:"KAGGLE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// BaseDir anchors every relative directory. Empty means the executable directory.
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	ConfigFile string `yaml:"-" envconfig:"CONFIG_FILE"`
}

// SamplingConfig drives the anonymizer and stratified sampler
type SamplingConfig struct {
	From         string   `yaml:"from" envconfig:"FROM" validate:"required,datetime=2006-01-02"`
	To           string   `yaml:"to" envconfig:"TO" validate:"required,datetime=2006-01-02"`
	TargetSize   int      `yaml:"target_size" envconfig:"TARGET_SIZE" validate:"gt=0"`
	Seed         int64    `yaml:"seed" envconfig:"SEED"`
	OutputFile   string   `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required"`
	PseudonymKey string   `yaml:"pseudonym_key" envconfig:"PSEUDONYM_KEY" validate:"max=64"`
	LeakageCols  []string `yaml:"leakage_columns" envconfig:"LEAKAGE_COLUMNS"`
	PrivacyCols  []string `yaml:"privacy_columns" envconfig:"PRIVACY_COLUMNS"`
	PseudoCols   []string `yaml:"pseudonymize_columns" envconfig:"PSEUDONYMIZE_COLUMNS"`
	MaxOutputMB  float64  `yaml:"max_output_mb" envconfig:"MAX_OUTPUT_MB" validate:"gt=0"`
}

// FeaturesConfig tunes the feature pipeline. Column lists left empty fall
// back to the Lending Club defaults in the features package.
type FeaturesConfig struct {
	Smoothing          float64  `yaml:"smoothing" envconfig:"SMOOTHING" validate:"gte=0"`
	InnerFolds         int      `yaml:"inner_folds" envconfig:"INNER_FOLDS" validate:"gte=2"`
	MissingPlaceholder string   `yaml:"missing_placeholder" envconfig:"MISSING_PLACEHOLDER" validate:"required"`
	Numeric            []string `yaml:"numeric" envconfig:"NUMERIC"`
	LogTransform       []string `yaml:"log_transform" envconfig:"LOG_TRANSFORM"`
	OneHot             []string `yaml:"one_hot" envconfig:"ONE_HOT"`
	TargetEncode       []string `yaml:"target_encode" envconfig:"TARGET_ENCODE"`
}

// ModelConfig holds gradient boosting and cross-validation parameters
type ModelConfig struct {
	NumRounds       int     `yaml:"num_rounds" envconfig:"NUM_ROUNDS" validate:"gt=0"`
	LearningRate    float64 `yaml:"learning_rate" envconfig:"LEARNING_RATE" validate:"gt=0,lte=1"`
	MaxDepth        int     `yaml:"max_depth" envconfig:"MAX_DEPTH" validate:"gt=0,lte=16"`
	MinChildSamples int     `yaml:"min_child_samples" envconfig:"MIN_CHILD_SAMPLES" validate:"gte=1"`
	Lambda          float64 `yaml:"lambda" envconfig:"LAMBDA" validate:"gte=0"`
	Subsample       float64 `yaml:"subsample" envconfig:"SUBSAMPLE" validate:"gt=0,lte=1"`
	ColSample       float64 `yaml:"colsample" envconfig:"COLSAMPLE" validate:"gt=0,lte=1"`
	ClassWeight     string  `yaml:"class_weight" envconfig:"CLASS_WEIGHT" validate:"oneof=balanced none"`
	Threshold       float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0,lt=1"`
	Folds           int     `yaml:"folds" envconfig:"FOLDS" validate:"gte=2"`
	Parallelism     int     `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=1"`
	Seed            int64   `yaml:"seed" envconfig:"SEED"`
}

// KaggleConfig configures the optional dataset download
type KaggleConfig struct {
	DatasetID       string        `yaml:"dataset_id" envconfig:"DATASET_ID" validate:"required"`
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// TelemetryConfig controls tracing and metrics output for batch runs
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	configFile := os.Getenv(EnvPrefix + "_PATHS_CONFIG_FILE")
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg.Paths.ConfigFile = configFile
	}

	// Fields without a default tag are left untouched when their variable is
	// unset, so file values survive.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	from, _ := time.Parse(DateLayout, c.Sampling.From)
	to, _ := time.Parse(DateLayout, c.Sampling.To)
	if to.Before(from) {
		return fmt.Errorf("sampling range is inverted: %s > %s", c.Sampling.From, c.Sampling.To)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "loanrisk.log")
	}

	return nil
}

// DateRange returns the parsed sampling window
func (c *Config) DateRange() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, c.Sampling.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse sampling.from: %w", err)
	}
	to, err := time.Parse(DateLayout, c.Sampling.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse sampling.to: %w", err)
	}
	return from, to, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: "console",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
		Sampling: SamplingConfig{
			From:        DefaultSampleFrom,
			To:          DefaultSampleTo,
			TargetSize:  DefaultSampleSize,
			Seed:        DefaultSeed,
			OutputFile:  DefaultSampleFile,
			MaxOutputMB: PublishLimitMB,
		},
		Features: FeaturesConfig{
			Smoothing:          10,
			InnerFolds:         5,
			MissingPlaceholder: "missing",
		},
		Model: ModelConfig{
			NumRounds:       300,
			LearningRate:    0.05,
			MaxDepth:        6,
			MinChildSamples: 20,
			Lambda:          1.0,
			Subsample:       0.8,
			ColSample:       0.8,
			ClassWeight:     "balanced",
			Threshold:       0.5,
			Folds:           5,
			Parallelism:     1,
			Seed:            DefaultSeed,
		},
		Kaggle: KaggleConfig{
			DatasetID: DefaultDatasetID,
			BaseURL:   KaggleAPIBaseURL,
			Timeout:   DownloadTimeout,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			EnableTracing: false,
			EnableMetrics: true,
		},
	}
}
