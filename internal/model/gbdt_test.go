package model

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperrors "loanrisk/internal/errors"
)

// separable has one informative column and one noise column
func separable(n int, seed uint64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, 1))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		signal := rng.Float64()
		X.Set(i, 0, signal)
		X.Set(i, 1, rng.NormFloat64())
		if signal > 0.7 {
			y[i] = 1
		}
	}
	return X, y
}

func smallParams() Params {
	p := DefaultParams()
	p.NumRounds = 20
	p.MaxDepth = 3
	p.MinChildSamples = 5
	return p
}

func mustPredict(t *testing.T, b *Booster, X mat.Matrix) []float64 {
	t.Helper()
	p, err := b.PredictProba(X)
	require.NoError(t, err)
	return p
}

func TestTrainLearnsSignal(t *testing.T) {
	X, y := separable(2000, 3)
	b, err := Train(context.Background(), X, y, []string{"signal", "noise"}, smallParams())
	require.NoError(t, err)
	assert.Equal(t, 20, b.Rounds())

	testX, testY := separable(1000, 9)
	p := mustPredict(t, b, testX)
	require.Len(t, p, 1000)
	for _, v := range p {
		assert.True(t, v > 0 && v < 1)
	}
	auc, err := AUC(testY, p)
	require.NoError(t, err)
	assert.Greater(t, auc, 0.9)

	imp := b.FeatureImportance()
	require.Len(t, imp, 2)
	assert.Equal(t, "signal", imp[0].Feature)
	assert.Greater(t, imp[0].Gain, imp[1].Gain)
	assert.Positive(t, imp[0].Splits)
	assert.InDelta(t, 1, imp[0].Gain+imp[1].Gain, 1e-9, "gain is a share of the total")
}

func TestTrainRespectsMaxDepth(t *testing.T) {
	X, y := separable(500, 4)
	p := smallParams()
	p.MaxDepth = 1
	p.NumRounds = 5

	b, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)
	for _, tree := range b.clf.Model.Trees {
		internal := 0
		for i := range tree.Nodes {
			if !tree.Nodes[i].IsLeaf() {
				internal++
			}
		}
		assert.LessOrEqual(t, internal, 1, "a depth-one tree is a single split")
	}
}

func TestTrainDeterministic(t *testing.T) {
	X, y := separable(500, 5)
	p := smallParams()
	p.Subsample = 0.7
	p.ColSample = 0.5

	a, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)
	b, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)
	assert.Equal(t, mustPredict(t, a, X), mustPredict(t, b, X))

	p.Seed++
	c, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)
	assert.NotEqual(t, mustPredict(t, a, X), mustPredict(t, c, X))
}

func TestTrainClassWeight(t *testing.T) {
	X, y := separable(1000, 11)
	p := smallParams()

	p.ClassWeight = ClassWeightNone
	plain, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)

	p.ClassWeight = ClassWeightBalanced
	balanced, err := Train(context.Background(), X, y, nil, p)
	require.NoError(t, err)

	// upweighting the minority class raises predicted default rates
	n := float64(len(y))
	assert.Greater(t, floats.Sum(mustPredict(t, balanced, X))/n, floats.Sum(mustPredict(t, plain, X))/n)
}

func TestSampleWeights(t *testing.T) {
	y := []float64{0, 1, 0, 0}
	assert.Equal(t, []float64{1, 3, 1, 1}, sampleWeights(y, DefaultParams().positiveWeight(y)))

	p := DefaultParams()
	p.ClassWeight = ClassWeightNone
	assert.Equal(t, []float64{1, 1, 1, 1}, sampleWeights(y, p.positiveWeight(y)))

	p.ScalePosWeight = 2
	assert.Equal(t, []float64{1, 2, 1, 1}, sampleWeights(y, p.positiveWeight(y)))
}

func TestTrainErrors(t *testing.T) {
	X, y := separable(100, 1)

	tests := []struct {
		name   string
		ctx    func() context.Context
		X      mat.Matrix
		y      []float64
		mutate func(*Params)
		is     error
		typ    apperrors.ErrorType
	}{
		{
			name:   "invalid params",
			X:      X,
			y:      y,
			mutate: func(p *Params) { p.LearningRate = 0 },
			typ:    apperrors.ErrTypeValidation,
		},
		{
			name:   "depth beyond limit",
			X:      X,
			y:      y,
			mutate: func(p *Params) { p.MaxDepth = 17 },
			typ:    apperrors.ErrTypeValidation,
		},
		{
			name: "label mismatch",
			X:    X,
			y:    y[:10],
			typ:  apperrors.ErrTypeValidation,
		},
		{
			name: "single class",
			X:    X,
			y:    make([]float64, 100),
			typ:  apperrors.ErrTypeValidation,
		},
		{
			name: "cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			X:  X,
			y:  y,
			is: context.Canceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			p := smallParams()
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			_, err := Train(ctx, tt.X, tt.y, nil, p)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			} else {
				assert.True(t, apperrors.IsType(err, tt.typ))
			}
		})
	}
}

func TestPredictProbaWidthMismatch(t *testing.T) {
	X, y := separable(200, 2)
	b, err := Train(context.Background(), X, y, nil, smallParams())
	require.NoError(t, err)

	_, err = b.PredictProba(mat.NewDense(3, 5, nil))
	assert.Error(t, err)
}
