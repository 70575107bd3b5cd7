package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"loanrisk/internal/config"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths          *config.Paths
	logger         *slog.Logger
	publishLimitMB float64
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger, publishLimitMB: config.PublishLimitMB}
}

// WithPublishLimit sets the size under which a sample counts as publishable
func (w *CSVWriter) WithPublishLimit(mb float64) *CSVWriter {
	if mb > 0 {
		w.publishLimitMB = mb
	}
	return w
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options. Paths ending in
// .gz are gzip compressed.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	stream, err := w.CreateStreamWriter(filePath, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}

	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Abort()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return stream.Close()
}

// outputFileMode is applied before the rename; temp files are created 0600
const outputFileMode os.FileMode = 0644

// StreamWriter writes CSV records to a temporary file that is renamed into
// place on Close, so readers never see a half-written file.
type StreamWriter struct {
	path    string
	file    *os.File
	gz      *gzip.Writer
	writer  *csv.Writer
	records int
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	s := &StreamWriter{path: fullPath, file: file}
	var out io.Writer = file
	if strings.HasSuffix(strings.ToLower(fullPath), ".gz") {
		// A zero header ModTime keeps the output byte-for-byte reproducible
		s.gz, err = gzip.NewWriterLevel(file, gzip.BestCompression)
		if err != nil {
			s.Abort()
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		out = s.gz
	}

	if bom {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			s.Abort()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	s.writer = csv.NewWriter(out)
	if len(headers) > 0 {
		if err := s.writer.Write(headers); err != nil {
			s.Abort()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return s, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.records++
	return nil
}

// Records returns how many records were written, header excluded
func (s *StreamWriter) Records() int {
	return s.records
}

// Close flushes the stream and moves the file into place
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.Abort()
		return err
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			s.Abort()
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err := s.file.Chmod(outputFileMode); err != nil {
		s.Abort()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return err
	}
	if err := os.Rename(s.file.Name(), s.path); err != nil {
		os.Remove(s.file.Name())
		return fmt.Errorf("failed to move %s into place: %w", s.path, err)
	}
	return nil
}

// Abort discards the partial file
func (s *StreamWriter) Abort() {
	s.file.Close()
	os.Remove(s.file.Name())
}

// resolvePath keeps absolute paths; relative gzip CSVs go to the samples
// directory and everything else to reports.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	if strings.HasSuffix(strings.ToLower(filePath), ".csv.gz") {
		return w.paths.GetSamplePath(filePath)
	}
	return w.paths.GetReportPath(filePath)
}
