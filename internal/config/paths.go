package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir      string
	DataDir      string
	DownloadsDir string
	SamplesDir   string
	ReportsDir   string
	LogsDir      string

	// KaggleCredentials is the kaggle.json used when no env credentials are set
	KaggleCredentials string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe), PathsConfig{DataDir: DefaultDataDir, LogsDir: DefaultLogsDir}), nil
}

// ResolvePaths builds Paths from configuration. An empty BaseDir falls back
// to the executable directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	if cfg.BaseDir == "" {
		exePaths, err := GetPaths()
		if err != nil {
			return nil, err
		}
		cfg.BaseDir = exePaths.BaseDir
	}

	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", cfg.BaseDir, err)
	}
	return NewPaths(base, cfg), nil
}

// NewPaths lays out the directory tree under baseDir.
//
//	<base>/
//	  data/
//	    downloads/   raw dataset files
//	    samples/     anonymized samples
//	    reports/     sampling and evaluation reports
//	  logs/
func NewPaths(baseDir string, cfg PathsConfig) *Paths {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(baseDir, dataDir)
	}

	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(baseDir, logsDir)
	}

	credentials := ""
	if home, err := os.UserHomeDir(); err == nil {
		credentials = filepath.Join(home, KaggleCredentialsDir, KaggleCredentialsFile)
	}

	return &Paths{
		BaseDir:           baseDir,
		DataDir:           dataDir,
		DownloadsDir:      filepath.Join(dataDir, "downloads"),
		SamplesDir:        filepath.Join(dataDir, "samples"),
		ReportsDir:        filepath.Join(dataDir, "reports"),
		LogsDir:           logsDir,
		KaggleCredentials: credentials,
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.DownloadsDir,
		p.SamplesDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetDownloadPath returns the path for a downloaded file
func (p *Paths) GetDownloadPath(filename string) string {
	return filepath.Join(p.DownloadsDir, filename)
}

// GetSamplePath returns the path for a sample file. Absolute names are kept.
func (p *Paths) GetSamplePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.SamplesDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("downloads", p.DownloadsDir),
			slog.String("samples", p.SamplesDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Bool("kaggle_credentials_present", FileExists(p.KaggleCredentials)))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
