// Package config provides centralized configuration management for loanrisk.
// It handles loading configuration from multiple sources, validation, and
// path layout for every batch tool.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern LOANRISK_<SECTION>_<FIELD>:
//
//	LOANRISK_LOGGING_LEVEL=debug
//	LOANRISK_SAMPLING_TARGET_SIZE=400000
//	LOANRISK_SAMPLING_SEED=7
//	LOANRISK_MODEL_FOLDS=10
//	LOANRISK_KAGGLE_CREDENTIALS_FILE=/secrets/kaggle.json
//	LOANRISK_PATHS_CONFIG_FILE=/etc/loanrisk/config.yaml
//
// # Path Management
//
// Paths lays out data, samples, reports and logs below a base directory
// (the executable directory unless paths.base_dir is set):
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	samplePath := paths.GetSamplePath(cfg.Sampling.OutputFile)
//	reportPath := paths.GetReportPath(config.SampleReportJSON)
//
// # Validation
//
// Struct tags are checked with go-playground/validator at load time, plus
// cross-field rules such as a non-inverted sampling window.
//
// # Testing
//
// Use config.Default() for a fully populated configuration that needs no
// environment or files.
package config
