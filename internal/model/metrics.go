package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo/metrics"
	"gonum.org/v1/gonum/mat"

	apperrors "loanrisk/internal/errors"
	"loanrisk/pkg/contracts/domain"
)

// AUC is the ROC AUC with tied scores grouped into one threshold. A
// single-class sample has no defined AUC and reports 0.5.
func AUC(y, p []float64) (float64, error) {
	yv, pv, err := vectors(y, p)
	if err != nil {
		return 0, err
	}
	return metrics.AUC(yv, pv)
}

// LogLoss is the mean binary cross-entropy with probabilities clipped
// 1e-15 away from 0 and 1
func LogLoss(y, p []float64) (float64, error) {
	yv, pv, err := vectors(y, p)
	if err != nil {
		return 0, err
	}
	return metrics.BinaryLogLoss(yv, pv)
}

// Accuracy is the share of rows whose thresholded prediction matches
func Accuracy(y, p []float64, threshold float64) (float64, error) {
	if len(y) != len(p) {
		return 0, mismatch(y, p)
	}
	labels := make([]float64, len(p))
	for i, v := range p {
		if v >= threshold {
			labels[i] = 1
		}
	}
	yv, lv, err := vectors(y, labels)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(yv, lv)
}

func vectors(y, p []float64) (*mat.VecDense, *mat.VecDense, error) {
	if len(y) == 0 {
		return nil, nil, apperrors.NewValidationError("no rows to score")
	}
	if len(y) != len(p) {
		return nil, nil, mismatch(y, p)
	}
	return mat.NewVecDense(len(y), append([]float64(nil), y...)),
		mat.NewVecDense(len(p), append([]float64(nil), p...)), nil
}

func mismatch(y, p []float64) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("%d labels scored against %d predictions", len(y), len(p)))
}

// Brier is the mean squared error of the probabilities
func Brier(y, p []float64) (float64, error) {
	yv, pv, err := vectors(y, p)
	if err != nil {
		return 0, err
	}
	return metrics.MSE(yv, pv)
}

// KS is the largest gap between the score CDFs of defaults and non-defaults.
// Tied scores move both CDFs together.
func KS(y, p []float64) float64 {
	var pos, neg float64
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}

	idx := sortedByScore(p)
	var cp, cn, best float64
	for i := 0; i < len(idx); {
		j := i
		for ; j < len(idx) && p[idx[j]] == p[idx[i]]; j++ {
			if y[idx[j]] == 1 {
				cp++
			} else {
				cn++
			}
		}
		best = math.Max(best, math.Abs(cp/pos-cn/neg))
		i = j
	}
	return best
}

// Confusion counts predictions at a probability threshold
type Confusion struct {
	TP, FP, TN, FN int
}

// NewConfusion predicts default when p >= threshold
func NewConfusion(y, p []float64, threshold float64) Confusion {
	var c Confusion
	for i, v := range y {
		predicted := p[i] >= threshold
		switch {
		case predicted && v == 1:
			c.TP++
		case predicted:
			c.FP++
		case v == 1:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

// Precision returns 0 when nothing is predicted positive
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

// Recall returns 0 when there are no positives
func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Evaluate computes every fold metric for labels y and probabilities p
func Evaluate(y, p []float64, threshold float64) (domain.FoldMetrics, error) {
	auc, err := AUC(y, p)
	if err != nil {
		return domain.FoldMetrics{}, fmt.Errorf("auc: %w", err)
	}
	logLoss, err := LogLoss(y, p)
	if err != nil {
		return domain.FoldMetrics{}, fmt.Errorf("log loss: %w", err)
	}
	brier, err := Brier(y, p)
	if err != nil {
		return domain.FoldMetrics{}, fmt.Errorf("brier: %w", err)
	}
	accuracy, err := Accuracy(y, p, threshold)
	if err != nil {
		return domain.FoldMetrics{}, fmt.Errorf("accuracy: %w", err)
	}

	c := NewConfusion(y, p, threshold)
	var defaults float64
	for _, v := range y {
		defaults += v
	}
	return domain.FoldMetrics{
		ValidRows:   len(y),
		AUC:         auc,
		LogLoss:     logLoss,
		Brier:       brier,
		KS:          KS(y, p),
		Precision:   c.Precision(),
		Recall:      c.Recall(),
		F1:          c.F1(),
		Accuracy:    accuracy,
		DefaultRate: defaults / float64(len(y)),
	}, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func sortedByScore(p []float64) []int {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
	return idx
}
