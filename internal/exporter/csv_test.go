package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/internal/config"
	"loanrisk/internal/dataset"
)

func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.PathsConfig{})
	require.NoError(t, paths.EnsureDirectories())
	return NewCSVWriter(paths, nil), paths
}

func readGzipCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	records, err := csv.NewReader(zr).ReadAll()
	require.NoError(t, err)
	return records
}

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable(
		[]string{"id", "issue_d", "grade", "target_default"},
		[][]string{
			{"a1", "2016-01-01", "A", "0"},
			{"b2", "2017-05-01", "B, C", "1"},
		})
	require.NoError(t, err)
	return table
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	err := writer.WriteCSV("summary.csv", WriteOptions{
		Headers:   []string{"k", "v"},
		Records:   [][]string{{"a", "1"}, {"b", "2"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(paths.GetReportPath("summary.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "k,v\na,1\nb,2\n", string(content[3:]))

	leftovers, err := filepath.Glob(filepath.Join(paths.ReportsDir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCSVWriter_OutputIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("summary.csv", WriteOptions{Headers: []string{"k"}}))
	_, err := writer.WriteSample(context.Background(), sampleTable(t), "sample.csv.gz")
	require.NoError(t, err)

	for _, path := range []string{paths.GetReportPath("summary.csv"), paths.GetSamplePath("sample.csv.gz")} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm(), path)
	}
}

func TestCSVWriter_StreamAbort(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("partial.csv", []string{"a"}, false)
	require.NoError(t, err)
	require.NoError(t, stream.WriteRecord([]string{"1"}))
	stream.Abort()

	_, err = os.Stat(paths.GetReportPath("partial.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCSVWriter_WriteSample(t *testing.T) {
	writer, paths := setupTestEnv(t)

	info, err := writer.WriteSample(context.Background(), sampleTable(t), "sample.csv.gz")
	require.NoError(t, err)

	assert.Equal(t, paths.GetSamplePath("sample.csv.gz"), info.Path)
	assert.Equal(t, 2, info.Records)
	assert.True(t, info.PublishSuitable)
	assert.Greater(t, info.SizeBytes, int64(0))
	assert.InDelta(t, float64(info.SizeBytes)/(1024*1024), info.SizeMB, 1e-12)

	records := readGzipCSV(t, info.Path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "issue_d", "grade", "target_default"}, records[0])
	assert.Equal(t, "B, C", records[2][2])
}

func TestCSVWriter_WriteSampleIsByteIdentical(t *testing.T) {
	writer, _ := setupTestEnv(t)
	dir := t.TempDir()

	first, err := writer.WriteSample(context.Background(), sampleTable(t), filepath.Join(dir, "one.csv.gz"))
	require.NoError(t, err)
	second, err := writer.WriteSample(context.Background(), sampleTable(t), filepath.Join(dir, "two.csv.gz"))
	require.NoError(t, err)

	b1, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	b2, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	// gzip header MTIME bytes stay zero
	assert.Equal(t, []byte{0, 0, 0, 0}, b1[4:8])
}

func TestCSVWriter_PublishLimit(t *testing.T) {
	writer, _ := setupTestEnv(t)
	writer.WithPublishLimit(1e-9)

	info, err := writer.WriteSample(context.Background(), sampleTable(t), "big.csv.gz")
	require.NoError(t, err)
	assert.False(t, info.PublishSuitable)
}

func TestCSVWriter_WriteSampleCancelled(t *testing.T) {
	writer, paths := setupTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := writer.WriteSample(ctx, sampleTable(t), "cancelled.csv.gz")
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(paths.GetSamplePath("cancelled.csv.gz"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)

	abs := filepath.Join(t.TempDir(), "x.csv")
	assert.Equal(t, abs, writer.resolvePath(abs))
	assert.Equal(t, paths.GetSamplePath("s.csv.gz"), writer.resolvePath("s.csv.gz"))
	assert.Equal(t, paths.GetReportPath("r.csv"), writer.resolvePath("r.csv"))

	bare := NewCSVWriter(nil, nil)
	assert.Equal(t, "r.csv", bare.resolvePath("r.csv"))
}

