package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"

	apperrors "loanrisk/internal/errors"
)

// Format identifies how a data file is encoded
type Format string

const (
	FormatCSV     Format = "csv"
	FormatGzipCSV Format = "csv+gzip"
	FormatXLSX    Format = "xlsx"
)

var gzipMagic = []byte{0x1f, 0x8b}

const (
	progressInterval = 5 * time.Second
	// ctx is checked once per this many rows
	cancelCheckEvery = 10000
)

// LoadStats describes one load
type LoadStats struct {
	Path          string        `json:"path"`
	Format        Format        `json:"format"`
	Columns       int           `json:"columns"`
	Rows          int           `json:"rows"`
	MalformedRows int           `json:"malformed_rows"`
	Duration      time.Duration `json:"duration"`
}

// Loader reads loan data files into tables
type Loader struct {
	logger   *slog.Logger
	progress *rate.Sometimes
}

// NewLoader creates a loader. Progress is logged at most every five seconds.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger,
		progress: &rate.Sometimes{Interval: progressInterval},
	}
}

// Load reads path with a default loader
func Load(ctx context.Context, path string) (*Table, *LoadStats, error) {
	return NewLoader(nil).Load(ctx, path)
}

// Load reads a CSV, gzip CSV or xlsx file. Rows whose cell count differs
// from the header are skipped and counted, never fatal.
func (l *Loader) Load(ctx context.Context, path string) (*Table, *LoadStats, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.NewNotFoundError("data file " + path)
		}
		return nil, nil, apperrors.NewStorageError("failed to open "+path, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	format, err := DetectFormat(path, br)
	if err != nil {
		return nil, nil, err
	}

	l.logger.InfoContext(ctx, "Loading dataset",
		slog.String("path", path),
		slog.String("format", string(format)))

	var (
		table *Table
		stats *LoadStats
	)
	switch format {
	case FormatXLSX:
		table, stats, err = l.readXLSX(ctx, br)
	case FormatGzipCSV:
		zr, zerr := gzip.NewReader(br)
		if zerr != nil {
			return nil, nil, apperrors.NewParsingError("invalid gzip stream in "+path, zerr)
		}
		defer zr.Close()
		table, stats, err = l.ReadCSV(ctx, zr)
	default:
		table, stats, err = l.ReadCSV(ctx, br)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}

	stats.Path = path
	stats.Format = format
	stats.Duration = time.Since(start)

	l.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("path", path),
		slog.Int("rows", stats.Rows),
		slog.Int("columns", stats.Columns),
		slog.Int("malformed_rows", stats.MalformedRows),
		slog.Duration("duration", stats.Duration))

	return table, stats, nil
}

// DetectFormat picks the decoder from the extension. Files named .gzip are
// only treated as gzip when they start with the gzip magic bytes; some
// mirrors ship plain CSV under that name.
func DetectFormat(path string, br *bufio.Reader) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(name, ".gz"):
		return FormatGzipCSV, nil
	case strings.HasSuffix(name, ".gzip"):
		magic, err := br.Peek(len(gzipMagic))
		if err != nil && !errors.Is(err, io.EOF) {
			return "", apperrors.NewStorageError("failed to read "+path, err)
		}
		if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
			return FormatGzipCSV, nil
		}
		return FormatCSV, nil
	}
	return FormatCSV, nil
}

// ReadCSV reads a header row followed by records
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) (*Table, *LoadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.NewParsingError("file is empty: missing header row", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to read header row", err)
	}
	header = cleanHeader(header)

	stats := &LoadStats{Columns: len(header)}
	var rows [][]string

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.MalformedRows++
				continue
			}
			return nil, nil, apperrors.NewStorageError("failed to read csv stream", err)
		}

		if len(record) != len(header) {
			stats.MalformedRows++
			continue
		}
		rows = append(rows, record)

		if len(rows)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			l.logProgress(ctx, len(rows), stats.MalformedRows)
		}
	}

	table, err := NewTable(header, rows)
	if err != nil {
		return nil, nil, err
	}
	stats.Rows = table.Len()
	return table, stats, nil
}

// readXLSX reads the first sheet. Spreadsheet rows omit trailing empty
// cells, so short rows are padded; rows wider than the header are malformed.
func (l *Loader) readXLSX(ctx context.Context, r io.Reader) (*Table, *LoadStats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	iter, err := f.Rows(sheets[0])
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to read sheet "+sheets[0], err)
	}
	defer iter.Close()

	var header []string
	stats := &LoadStats{}
	var rows [][]string

	for iter.Next() {
		cells, err := iter.Columns()
		if err != nil {
			stats.MalformedRows++
			continue
		}
		if header == nil {
			if len(cells) == 0 {
				continue
			}
			header = cleanHeader(cells)
			stats.Columns = len(header)
			continue
		}
		if len(cells) == 0 {
			continue
		}
		if len(cells) > len(header) {
			stats.MalformedRows++
			continue
		}
		if len(cells) < len(header) {
			padded := make([]string, len(header))
			copy(padded, cells)
			cells = padded
		}
		rows = append(rows, cells)

		if len(rows)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			l.logProgress(ctx, len(rows), stats.MalformedRows)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, nil, apperrors.NewParsingError("failed to iterate sheet "+sheets[0], err)
	}
	if header == nil {
		return nil, nil, apperrors.NewParsingError("sheet is empty: missing header row", nil)
	}

	table, err := NewTable(header, rows)
	if err != nil {
		return nil, nil, err
	}
	stats.Rows = table.Len()
	return table, stats, nil
}

func (l *Loader) logProgress(ctx context.Context, rows, malformed int) {
	l.progress.Do(func() {
		l.logger.InfoContext(ctx, "Reading dataset",
			slog.Int("rows_read", rows),
			slog.Int("malformed_rows", malformed))
	})
}

// cleanHeader trims whitespace and a UTF-8 byte order mark
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
