package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"loanrisk/internal/dataset"
	"loanrisk/pkg/contracts/domain"
)

const bytesPerMB = 1024 * 1024

// WriteSample writes the anonymized sample as gzip CSV and describes the
// result. Identical tables produce identical bytes.
func (w *CSVWriter) WriteSample(ctx context.Context, table *dataset.Table, filePath string) (*domain.FileInfo, error) {
	stream, err := w.CreateStreamWriter(filePath, table.Columns(), false)
	if err != nil {
		return nil, err
	}

	for i := 0; i < table.Len(); i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				stream.Abort()
				return nil, err
			}
		}
		if err := stream.WriteRecord(table.Row(i)); err != nil {
			stream.Abort()
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}

	info, err := os.Stat(stream.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sample: %w", err)
	}

	sizeMB := float64(info.Size()) / bytesPerMB
	fileInfo := &domain.FileInfo{
		Path:            stream.path,
		SizeBytes:       info.Size(),
		SizeMB:          sizeMB,
		Records:         stream.Records(),
		PublishSuitable: sizeMB <= w.publishLimitMB,
	}

	level := slog.LevelInfo
	if !fileInfo.PublishSuitable {
		level = slog.LevelWarn
	}
	w.logger.Log(ctx, level, "Sample written",
		slog.String("path", fileInfo.Path),
		slog.Float64("size_mb", sizeMB),
		slog.Int("records", fileInfo.Records),
		slog.Bool("publish_suitable", fileInfo.PublishSuitable))

	return fileInfo, nil
}
