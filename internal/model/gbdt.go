package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/YuminosukeSato/scigo/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"

	apperrors "loanrisk/internal/errors"
)

// Booster is a trained LightGBM binary classifier with the names of the
// columns it was fitted on
type Booster struct {
	Names []string

	clf *lightgbm.LGBMClassifier
}

// Train fits a booster on X and binary labels y. ctx is checked before and
// after fitting; a fit in progress runs to completion.
func Train(ctx context.Context, X mat.Matrix, y []float64, names []string, p Params) (*Booster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n, d := X.Dims()
	if n == 0 || n != len(y) {
		return nil, apperrors.NewValidationError("training data is empty or labels do not match rows")
	}
	if len(names) != d {
		names = make([]string, d)
	}
	pos := 0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == n {
		return nil, apperrors.NewValidationError("training labels hold a single class").
			WithContext("rows", n).
			WithContext("defaults", pos)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clf := newClassifier(p)
	labels := mat.NewDense(n, 1, append([]float64(nil), y...))
	if err := clf.FitWeighted(X, labels, sampleWeights(y, p.positiveWeight(y))); err != nil {
		return nil, fmt.Errorf("fit booster: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Booster{Names: append([]string(nil), names...), clf: clf}, nil
}

func newClassifier(p Params) *lightgbm.LGBMClassifier {
	clf := lightgbm.NewLGBMClassifier()
	clf.NumIterations = p.NumRounds
	clf.LearningRate = p.LearningRate
	clf.MaxDepth = p.MaxDepth
	// depth is the binding limit on tree size
	clf.NumLeaves = 1<<p.MaxDepth + 1
	clf.MinChildSamples = p.MinChildSamples
	clf.RegLambda = p.Lambda
	clf.Subsample = p.Subsample
	if p.Subsample < 1 {
		clf.SubsampleFreq = 1
	}
	clf.ColsampleBytree = p.ColSample
	clf.RandomState = int(p.Seed)
	clf.Deterministic = true
	clf.Verbosity = -1
	return clf
}

// sampleWeights gives defaults posW and repaid loans 1
func sampleWeights(y []float64, posW float64) []float64 {
	w := make([]float64, len(y))
	for i, v := range y {
		w[i] = 1
		if v == 1 {
			w[i] = posW
		}
	}
	return w
}

// Rounds returns the number of fitted trees
func (b *Booster) Rounds() int {
	return len(b.clf.Model.Trees)
}

// PredictProba returns the default probability of every row of X
func (b *Booster) PredictProba(X mat.Matrix) ([]float64, error) {
	proba, err := b.clf.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	// column 1 is the positive class
	return mat.Col(nil, 1, proba), nil
}

// Importance is the share of split gain and the split count of one feature
type Importance struct {
	Feature string
	Gain    float64
	Splits  int
}

// FeatureImportance lists features by descending gain. Gain is the
// feature's share of the total split gain of the fitted trees.
func (b *Booster) FeatureImportance() []Importance {
	gain := b.clf.GetFeatureImportance("gain")
	splits := make([]int, len(b.Names))
	for _, tree := range b.clf.Model.Trees {
		for i := range tree.Nodes {
			if node := &tree.Nodes[i]; !node.IsLeaf() {
				splits[node.SplitFeature]++
			}
		}
	}

	out := make([]Importance, len(b.Names))
	for j, name := range b.Names {
		out[j] = Importance{Feature: name, Splits: splits[j]}
		if j < len(gain) {
			out[j].Gain = gain[j]
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain > out[j].Gain
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}
