package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/internal/config"
)

func TestParseFlags(t *testing.T) {
	defaults := *config.Default()

	o, err := parseFlags(nil, defaults, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, defaults.Sampling.OutputFile, o.in)
	assert.Equal(t, defaults.Model.Folds, o.folds)
	assert.Equal(t, defaults.Model.Parallelism, o.parallelism)

	o, err = parseFlags([]string{"-in", "/tmp/s.csv.gz", "-folds", "10", "-parallel", "4"}, defaults, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/s.csv.gz", o.in)
	assert.Equal(t, 10, o.folds)
	assert.Equal(t, 4, o.parallelism)

	_, err = parseFlags([]string{"-folds", "1"}, defaults, io.Discard)
	require.Error(t, err)

	o, err = parseFlags([]string{"-version", "-folds", "1"}, defaults, io.Discard)
	require.NoError(t, err)
	assert.True(t, o.version)
}
