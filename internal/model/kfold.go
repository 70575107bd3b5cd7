package model

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/scigo/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"

	apperrors "loanrisk/internal/errors"
)

// StratifiedKFold splits row positions into k validation folds carrying
// the population class ratio. Rows are permuted with seed before the split
// and each fold is returned sorted.
func StratifiedKFold(y []float64, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("k must be at least 2, got %d", k))
	}
	if len(y) == 0 {
		return nil, apperrors.NewValidationError("no labelled rows to split")
	}

	counts := map[float64]int{}
	for _, v := range y {
		counts[v]++
	}
	classes := make([]float64, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	for _, c := range classes {
		if counts[c] < k {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("class %v has %d rows, fewer than k=%d", c, counts[c], k))
		}
	}

	// the splitter's own shuffle walks a map, so order is fixed here instead
	rng := rand.New(rand.NewPCG(uint64(seed), 0x5f01d))
	perm := rng.Perm(len(y))
	shuffled := make([]float64, len(y))
	for i, row := range perm {
		shuffled[i] = y[row]
	}
	labels := mat.NewVecDense(len(y), shuffled)

	splits := lightgbm.NewStratifiedKFold(k, false, int(seed)).Split(labels, labels)
	folds := make([][]int, len(splits))
	for f, split := range splits {
		folds[f] = make([]int, len(split.TestIndices))
		for i, pos := range split.TestIndices {
			folds[f][i] = perm[pos]
		}
		sort.Ints(folds[f])
	}
	return folds, nil
}

// complement returns 0..n-1 minus the sorted positions in valid
func complement(n int, valid []int) []int {
	out := make([]int, 0, n-len(valid))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(valid) && valid[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}
