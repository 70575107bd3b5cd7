package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/internal/config"
)

func TestParseFlags(t *testing.T) {
	defaults := config.Default().Kaggle

	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "default dataset", args: nil, want: options{dataset: defaults.DatasetID}},
		{name: "explicit", args: []string{"-dataset", "a/b", "-dir", "/data"}, want: options{dataset: "a/b", dir: "/data"}},
		{name: "malformed dataset", args: []string{"-dataset", "nope"}, wantErr: true},
		{name: "version", args: []string{"-version", "-dataset", "nope"}, want: options{dataset: "nope", version: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, defaults, io.Discard)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
