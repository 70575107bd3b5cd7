package kaggle

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/internal/config"
	apperrors "loanrisk/internal/errors"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestClient(url string) *Client {
	return NewClient(config.KaggleConfig{BaseURL: url, Timeout: 5 * time.Second},
		&Credentials{Username: "alice", Key: "secret"}, nil)
}

func TestClientDownload(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"readme.txt":                      "not data, and quite long to be the biggest file of all",
		"Loan_status_2007-2020Q3.gzip":    "id,loan_status\n1,Fully Paid\n2,Charged Off\n",
		"small/LCDataDictionary.csv":      "a\n",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "alice" || key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/datasets/download/ethon0426/lending-club-20072020q1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	defer server.Close()

	dir := t.TempDir()
	path, err := newTestClient(server.URL).Download(context.Background(), "ethon0426/lending-club-20072020q1", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Loan_status_2007-2020Q3.gzip"), path)
	_, err = os.Stat(filepath.Join(dir, "lending-club-20072020q1.zip"))
	assert.True(t, os.IsNotExist(err), "archive removed after extraction")
}

func TestClientDownloadStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType apperrors.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrTypeAuth},
		{"forbidden", http.StatusForbidden, apperrors.ErrTypeAuth},
		{"unknown dataset", http.StatusNotFound, apperrors.ErrTypeNotFound},
		{"server error", http.StatusInternalServerError, apperrors.ErrTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Download(context.Background(), "owner/name", t.TempDir())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestClientDownloadNoDataFile(t *testing.T) {
	archive := zipArchive(t, map[string]string{"readme.md": "hello"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Download(context.Background(), "owner/name", t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestClientDownloadRequiresCredentials(t *testing.T) {
	c := NewClient(config.KaggleConfig{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, err := c.Download(context.Background(), "owner/name", t.TempDir())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
}

func TestParseDatasetID(t *testing.T) {
	owner, name, err := ParseDatasetID("ethon0426/lending-club-20072020q1")
	require.NoError(t, err)
	assert.Equal(t, "ethon0426", owner)
	assert.Equal(t, "lending-club-20072020q1", name)

	for _, bad := range []string{"", "owner", "a/b/c", "/name"} {
		_, _, err := ParseDatasetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(archive, zipArchive(t, map[string]string{"../../evil.csv": "x"}), 0644))

	_, err := Unzip(archive, filepath.Join(dir, "out", "nested"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "evil.csv"))
	assert.True(t, os.IsNotExist(statErr), "nothing written outside the target")
}
