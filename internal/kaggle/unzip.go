package kaggle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	apperrors "loanrisk/internal/errors"
)

// dataSuffixes are the extracted names treated as loan data
var dataSuffixes = []string{".csv", ".csv.gz", ".gzip"}

// Unzip extracts archive into dir and returns the extracted file paths.
// Entries resolving outside dir are rejected.
func Unzip(archive, dir string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open archive "+archive, err)
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to resolve "+dir, err)
	}

	var files []string
	for _, entry := range r.File {
		target := filepath.Join(root, entry.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("archive entry %q escapes the target directory", entry.Name))
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, apperrors.NewStorageError("failed to create "+target, err)
			}
			continue
		}

		if err := extract(entry, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}
	return files, nil
}

func extract(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return apperrors.NewStorageError("failed to create "+filepath.Dir(target), err)
	}

	src, err := entry.Open()
	if err != nil {
		return apperrors.NewParsingError("failed to open archive entry "+entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return apperrors.NewStorageError("failed to create "+target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return apperrors.NewStorageError("failed to extract "+entry.Name, err)
	}
	if err := dst.Close(); err != nil {
		return apperrors.NewStorageError("failed to write "+target, err)
	}
	return nil
}

// LargestDataFile returns the biggest file whose name ends in a data suffix
func LargestDataFile(files []string) (string, error) {
	var (
		best     string
		bestSize int64 = -1
	)
	for _, f := range files {
		if !isDataFile(f) {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = f, info.Size()
		}
	}
	if best == "" {
		return "", apperrors.NewNotFoundError("data file (.csv, .csv.gz, .gzip) in archive")
	}
	return best, nil
}

func isDataFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, s := range dataSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
