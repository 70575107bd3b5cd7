package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sampleY = []float64{0, 0, 1, 1}
	sampleP = []float64{0.1, 0.4, 0.35, 0.8}
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name string
		y, p []float64
		want float64
	}{
		{name: "mixed", y: sampleY, p: sampleP, want: 0.75},
		{name: "perfect", y: []float64{0, 0, 1, 1}, p: []float64{0.1, 0.2, 0.8, 0.9}, want: 1},
		{name: "reversed", y: []float64{1, 1, 0, 0}, p: []float64{0.1, 0.2, 0.8, 0.9}, want: 0},
		{name: "all tied", y: []float64{0, 1, 0, 1}, p: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "partial tie", y: []float64{0, 1, 1}, p: []float64{0.3, 0.3, 0.9}, want: 0.75},
		{name: "single class", y: []float64{1, 1, 1}, p: []float64{0.1, 0.5, 0.9}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.y, tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestLogLossAndBrier(t *testing.T) {
	want := -(math.Log(0.9) + math.Log(0.6) + math.Log(0.35) + math.Log(0.8)) / 4
	got, err := LogLoss(sampleY, sampleP)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
	brier, err := Brier(sampleY, sampleP)
	require.NoError(t, err)
	assert.InDelta(t, 0.158125, brier, 1e-12)

	// clipped, not infinite
	clipped, err := LogLoss([]float64{1}, []float64{0})
	require.NoError(t, err)
	assert.False(t, math.IsInf(clipped, 0))
	assert.InDelta(t, -math.Log(1e-15), clipped, 1e-9)
}

func TestScoreInputErrors(t *testing.T) {
	tests := []struct {
		name string
		y, p []float64
		// accuracy compares labels and does not check they are binary
		labelsOnly bool
	}{
		{name: "empty", y: nil, p: nil},
		{name: "length mismatch", y: []float64{0, 1}, p: []float64{0.5}},
		{name: "non binary label", y: []float64{0, 2}, p: []float64{0.1, 0.9}, labelsOnly: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AUC(tt.y, tt.p)
			assert.Error(t, err)
			_, err = LogLoss(tt.y, tt.p)
			assert.Error(t, err)
			_, err = Accuracy(tt.y, tt.p, 0.5)
			if !tt.labelsOnly {
				assert.Error(t, err)
			}
			_, err = Evaluate(tt.y, tt.p, 0.5)
			assert.Error(t, err)
		})
	}
}

func TestAccuracy(t *testing.T) {
	got, err := Accuracy(sampleY, sampleP, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	// at the threshold counts as a predicted default
	got, err = Accuracy([]float64{1, 0}, []float64{0.3, 0.1}, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestKS(t *testing.T) {
	assert.InDelta(t, 0.5, KS(sampleY, sampleP), 1e-12)
	assert.InDelta(t, 1.0, KS([]float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}), 1e-12)
	assert.Zero(t, KS([]float64{0, 1}, []float64{0.5, 0.5}))
	assert.Zero(t, KS([]float64{0, 0}, []float64{0.1, 0.9}))
}

func TestConfusion(t *testing.T) {
	c := NewConfusion(sampleY, sampleP, 0.5)
	assert.Equal(t, Confusion{TP: 1, FP: 0, TN: 2, FN: 1}, c)
	assert.InDelta(t, 1.0, c.Precision(), 1e-12)
	assert.InDelta(t, 0.5, c.Recall(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.F1(), 1e-12)

	none := NewConfusion([]float64{0, 1}, []float64{0.1, 0.2}, 0.5)
	assert.Zero(t, none.Precision())
	assert.Zero(t, none.F1())
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate(sampleY, sampleP, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, m.ValidRows)
	assert.InDelta(t, 0.75, m.AUC, 1e-12)
	assert.InDelta(t, 0.5, m.KS, 1e-12)
	assert.InDelta(t, 0.5, m.DefaultRate, 1e-12)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-12)
}
