package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/internal/config"
)

func TestParseFlags(t *testing.T) {
	defaults := config.Default().Sampling

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o options)
	}{
		{
			name: "defaults from config",
			args: []string{"-in", "loans.csv.gz"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, "loans.csv.gz", o.in)
				assert.Equal(t, defaults.OutputFile, o.out)
				assert.Equal(t, defaults.TargetSize, o.size)
				assert.Equal(t, defaults.Seed, o.seed)
			},
		},
		{
			name: "overrides",
			args: []string{"-dataset", "owner/name", "-from", "2016-01-01", "-to", "2017-12-31", "-size", "10", "-seed", "3", "-out", "x.csv.gz"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, "owner/name", o.dataset)
				assert.Equal(t, 10, o.size)
				assert.Equal(t, int64(3), o.seed)
				req, err := o.request()
				require.NoError(t, err)
				assert.Equal(t, "2016-01-01..2017-12-31", req.Range.String())
				assert.Equal(t, "x.csv.gz", req.OutputPath)
			},
		},
		{name: "no source", args: []string{}, wantErr: true},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: true},
		{
			name:  "version needs no source",
			args:  []string{"-version"},
			check: func(t *testing.T, o options) { assert.True(t, o.version) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args, defaults, io.Discard)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestRequestRejectsBadDates(t *testing.T) {
	o := options{in: "x", from: "2020-13-01", to: "2020-12-31", size: 1, out: "x.csv.gz"}
	_, err := o.request()
	require.Error(t, err)
}
