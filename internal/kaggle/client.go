package kaggle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"loanrisk/internal/config"
	apperrors "loanrisk/internal/errors"
)

// Client downloads public datasets from the Kaggle API
type Client struct {
	baseURL    string
	creds      *Credentials
	httpClient *http.Client
	logger     *slog.Logger
	progress   *rate.Sometimes
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg config.KaggleConfig, creds *Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		progress:   &rate.Sometimes{Interval: 5 * time.Second},
	}
}

// ParseDatasetID splits "owner/name"
func ParseDatasetID(id string) (owner, name string, err error) {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.NewValidationError(
			fmt.Sprintf("invalid dataset id %q: want owner/name", id))
	}
	return parts[0], parts[1], nil
}

// Download fetches the dataset archive into dir, extracts it and returns the
// largest extracted data file. There are no retries.
func (c *Client) Download(ctx context.Context, datasetID, dir string) (string, error) {
	owner, name, err := ParseDatasetID(datasetID)
	if err != nil {
		return "", err
	}
	if c.creds == nil {
		return "", apperrors.NewAuthError("kaggle credentials are required", nil)
	}
	if err := c.creds.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create download directory "+dir, err)
	}

	url := fmt.Sprintf("%s/datasets/download/%s/%s", c.baseURL, owner, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.NewNetworkError("failed to build request", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)

	c.logger.InfoContext(ctx, "Downloading dataset",
		slog.String("dataset", datasetID),
		slog.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewNetworkError("dataset download failed", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, datasetID); err != nil {
		return "", err
	}

	archive := filepath.Join(dir, name+".zip")
	written, err := c.save(ctx, resp.Body, archive)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	c.logger.InfoContext(ctx, "Archive downloaded",
		slog.String("archive", archive),
		slog.Int64("bytes", written))

	files, err := Unzip(archive, dir)
	if err != nil {
		return "", err
	}

	dataFile, err := LargestDataFile(files)
	if err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "Dataset ready",
		slog.String("dataset", datasetID),
		slog.String("file", dataFile),
		slog.Int("extracted_files", len(files)))
	return dataFile, nil
}

func statusError(code int, datasetID string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.NewAuthError(
			fmt.Sprintf("kaggle rejected the credentials (HTTP %d)", code), nil)
	case code == http.StatusNotFound:
		return apperrors.NewNotFoundError("dataset " + datasetID)
	default:
		return apperrors.NewNetworkError(
			fmt.Sprintf("unexpected HTTP status %d downloading %s", code, datasetID), nil).
			WithContext("status", code)
	}
}

func (c *Client) save(ctx context.Context, body io.Reader, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to create "+path, err)
	}

	pw := &progressWriter{ctx: ctx, client: c}
	written, err := io.Copy(io.MultiWriter(f, pw), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, apperrors.NewNetworkError("failed to save archive", err)
	}
	return written, nil
}

type progressWriter struct {
	ctx    context.Context
	client *Client
	total  int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.total += int64(len(p))
	w.client.progress.Do(func() {
		w.client.logger.InfoContext(w.ctx, "Downloading",
			slog.Float64("mb", float64(w.total)/(1024*1024)))
	})
	return len(p), nil
}
