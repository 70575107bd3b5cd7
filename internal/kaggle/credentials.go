package kaggle

import (
	"encoding/json"
	"os"
	"strings"

	apperrors "loanrisk/internal/errors"
)

// Environment variables read before falling back to kaggle.json
const (
	EnvUsername = "KAGGLE_USERNAME"
	EnvKey      = "KAGGLE_KEY"
)

// Credentials authenticate against the Kaggle API
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// LoadCredentials reads KAGGLE_USERNAME/KAGGLE_KEY, or the kaggle.json at path
// when either variable is unset.
func LoadCredentials(path string) (*Credentials, error) {
	user, key := os.Getenv(EnvUsername), os.Getenv(EnvKey)
	if user != "" && key != "" {
		return &Credentials{Username: user, Key: key}, nil
	}

	if path == "" {
		return nil, apperrors.NewAuthError(
			"kaggle credentials not found: set "+EnvUsername+" and "+EnvKey+" or provide kaggle.json", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewAuthError("kaggle credentials not found at "+path, err)
		}
		return nil, apperrors.NewStorageError("failed to read "+path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, apperrors.NewAuthError("invalid kaggle credentials file "+path, err)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Validate rejects blank fields
func (c *Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Key) == "" {
		return apperrors.NewAuthError("kaggle credentials require username and key", nil)
	}
	return nil
}
