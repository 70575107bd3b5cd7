package pipeline

import (
	"context"

	"loanrisk/internal/infrastructure"
	"loanrisk/internal/kaggle"
)

// Download fetches datasetID into the downloads directory and returns the
// extracted data file
func (r *Runner) Download(ctx context.Context, datasetID string) (string, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	m := NewManifest(runID(ctx), "download")
	path, err := r.download(ctx, m, datasetID)
	if err == nil {
		m.AddOutputs(path)
	}
	return path, r.finish(ctx, m, err)
}

func (r *Runner) download(ctx context.Context, m *Manifest, datasetID string) (string, error) {
	var path string
	err := r.stage(ctx, m, StageDownload, func(ctx context.Context) (map[string]interface{}, error) {
		credsFile := r.cfg.Kaggle.CredentialsFile
		if credsFile == "" {
			credsFile = r.paths.KaggleCredentials
		}
		creds, err := kaggle.LoadCredentials(credsFile)
		if err != nil {
			return nil, err
		}

		client := kaggle.NewClient(r.cfg.Kaggle, creds, r.logger)
		path, err = client.Download(ctx, datasetID, r.paths.DownloadsDir)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"dataset": datasetID, "file": path}, nil
	})
	return path, err
}
