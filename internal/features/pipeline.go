package features

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/scigo/preprocessing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"loanrisk/internal/dataset"
	apperrors "loanrisk/internal/errors"
	"loanrisk/pkg/contracts/domain"
)

// Feature name prefixes
const (
	prefixNumeric = "num__"
	prefixOrdinal = "ord__"
	prefixOneHot  = "ohe__"
	prefixTarget  = "te__"
)

// Matrix is a model-ready design matrix
type Matrix struct {
	X     *mat.Dense
	Y     []float64
	Names []string
	// Rows maps matrix rows back to source table rows
	Rows         []int
	ExcludedRows int
	Issues       domain.RowIssues
}

// Fitted holds every statistic learned from a training partition. It is
// applied to other partitions as is and never refitted.
type Fitted struct {
	spec     Spec
	numeric  []numericImputer
	scaler   *preprocessing.StandardScaler
	ordinal  []ordinalEncoder
	oneHot   *preprocessing.OneHotEncoder
	target   []targetEncoder
	names    []string
	prior    float64
	trainRow int
}

// Fit learns the transform set from a training table
func Fit(t *dataset.Table, spec Spec) (*Fitted, error) {
	f, _, err := fit(t, spec)
	return f, err
}

func fit(t *dataset.Table, spec Spec) (*Fitted, parsed, error) {
	if err := spec.Validate(); err != nil {
		return nil, parsed{}, err
	}
	required := append(spec.InputColumns(), spec.Target)
	if err := t.Require("features", required...); err != nil {
		return nil, parsed{}, err
	}

	p := spec.parse(t, true)
	if len(p.rows) == 0 {
		return nil, p, apperrors.NewValidationError("no usable training rows").
			WithContext("excluded", p.issues)
	}

	logCols := make(map[string]bool, len(spec.LogTransform))
	for _, c := range spec.LogTransform {
		logCols[c] = true
	}

	f := &Fitted{
		spec:     spec,
		prior:    floats.Sum(p.y) / float64(len(p.y)),
		trainRow: len(p.rows),
	}
	for j, c := range spec.Numeric {
		f.numeric = append(f.numeric, fitNumeric(c, p.numeric[j], logCols[c]))
	}
	if len(f.numeric) > 0 {
		// population mean and std of the imputed block; zero std scales by 1
		f.scaler = preprocessing.NewStandardScaler(true, true)
		if err := f.scaler.Fit(f.numericBlock(p)); err != nil {
			return nil, p, fmt.Errorf("fit numeric scaler: %w", err)
		}
	}

	j := 0
	for _, c := range spec.ordinalColumns() {
		f.ordinal = append(f.ordinal, newOrdinal(c, spec.Ordinal[c]))
		j++
	}
	if len(spec.OneHot) > 0 {
		// sorted training levels per column; unseen levels encode as all zeros
		f.oneHot = preprocessing.NewOneHotEncoder()
		if err := f.oneHot.Fit(f.oneHotBlock(p)); err != nil {
			return nil, p, fmt.Errorf("fit one-hot encoder: %w", err)
		}
		j += len(spec.OneHot)
	}
	for _, c := range spec.TargetEncode {
		f.target = append(f.target, fitTarget(c, p.categorical[j], p.y, spec.Smoothing))
		j++
	}

	f.names = f.buildNames()
	return f, p, nil
}

func (f *Fitted) buildNames() []string {
	var names []string
	for _, s := range f.numeric {
		names = append(names, prefixNumeric+s.Name)
	}
	for _, e := range f.ordinal {
		names = append(names, prefixOrdinal+e.Name)
	}
	for k, c := range f.spec.OneHot {
		for _, level := range f.oneHot.Categories[k] {
			names = append(names, prefixOneHot+c+"="+level)
		}
	}
	for _, e := range f.target {
		names = append(names, prefixTarget+e.Name)
	}
	return names
}

// FeatureNames returns the output column names in matrix order
func (f *Fitted) FeatureNames() []string {
	return append([]string(nil), f.names...)
}

// Spec returns the column configuration the set was fitted with
func (f *Fitted) Spec() Spec {
	return f.spec
}

// Prior returns the training default rate used for unseen categories
func (f *Fitted) Prior() float64 {
	return f.prior
}

// TrainingRows returns how many rows the set was fitted on
func (f *Fitted) TrainingRows() int {
	return f.trainRow
}

// Transform applies the fitted set. The target is read when the table has
// the target column; otherwise Matrix.Y is nil.
func (f *Fitted) Transform(t *dataset.Table) (*Matrix, error) {
	if err := t.Require("features", f.spec.InputColumns()...); err != nil {
		return nil, err
	}
	p := f.spec.parse(t, t.Has(f.spec.Target))
	return f.matrix(p)
}

func (f *Fitted) matrix(p parsed) (*Matrix, error) {
	n := len(p.rows)
	if n == 0 {
		return nil, apperrors.NewValidationError("no usable rows to transform").
			WithContext("excluded", p.issues)
	}

	var scaled, indicators mat.Matrix
	var err error
	if f.scaler != nil {
		if scaled, err = f.scaler.Transform(f.numericBlock(p)); err != nil {
			return nil, fmt.Errorf("scale numeric features: %w", err)
		}
	}
	if f.oneHot != nil {
		if indicators, err = f.oneHot.Transform(f.oneHotBlock(p)); err != nil {
			return nil, fmt.Errorf("one-hot encode: %w", err)
		}
	}

	width := len(f.names)
	data := make([]float64, n*width)
	for i := 0; i < n; i++ {
		f.fillRow(data[i*width:(i+1)*width], p, scaled, indicators, i)
	}

	return &Matrix{
		X:            mat.NewDense(n, width, data),
		Y:            p.y,
		Names:        f.FeatureNames(),
		Rows:         p.rows,
		ExcludedRows: p.issues.Total(),
		Issues:       p.issues,
	}, nil
}

// numericBlock imputes and log-transforms the numeric columns of p
func (f *Fitted) numericBlock(p parsed) *mat.Dense {
	n := len(p.rows)
	block := mat.NewDense(n, len(f.numeric), nil)
	for j, s := range f.numeric {
		for i := 0; i < n; i++ {
			block.Set(i, j, s.prepare(p.numeric[j][i]))
		}
	}
	return block
}

// oneHotBlock gathers the one-hot columns of p row by row
func (f *Fitted) oneHotBlock(p parsed) [][]string {
	first := len(f.spec.ordinalColumns())
	block := make([][]string, len(p.rows))
	for i := range block {
		row := make([]string, len(f.spec.OneHot))
		for k := range row {
			row[k] = p.categorical[first+k][i]
		}
		block[i] = row
	}
	return block
}

func (f *Fitted) fillRow(dst []float64, p parsed, scaled, indicators mat.Matrix, i int) {
	k := 0
	for j := range f.numeric {
		dst[k] = scaled.At(i, j)
		k++
	}

	j := 0
	for _, e := range f.ordinal {
		dst[k] = e.transform(p.categorical[j][i])
		k++
		j++
	}
	if indicators != nil {
		_, c := indicators.Dims()
		for l := 0; l < c; l++ {
			dst[k] = indicators.At(i, l)
			k++
		}
		j += len(f.spec.OneHot)
	}
	for _, e := range f.target {
		dst[k] = e.transform(p.categorical[j][i])
		k++
		j++
	}
}

// FitTransform fits on t and transforms it. Target encodings of the
// returned matrix are computed out of fold: each row is encoded by a
// statistic fitted on the other inner folds, so no row sees its own label.
// The returned Fitted uses the full-partition statistics. Partitions with
// fewer rows than Spec.InnerFolds are cross-fitted leave-one-out.
func FitTransform(t *dataset.Table, spec Spec) (*Fitted, *Matrix, error) {
	f, p, err := fit(t, spec)
	if err != nil {
		return nil, nil, err
	}
	m, err := f.matrix(p)
	if err != nil {
		return nil, nil, err
	}

	if len(f.target) == 0 {
		return f, m, nil
	}
	k := min(spec.InnerFolds, len(p.rows))
	if k < 2 {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("out-of-fold target encoding needs at least 2 rows, got %d", len(p.rows)))
	}

	folds := innerFolds(len(p.rows), k, spec.Seed)
	firstTE := len(f.names) - len(f.target)
	catOffset := len(f.ordinal) + len(f.spec.OneHot)

	for _, valid := range folds {
		inFold := make([]bool, len(p.rows))
		for _, i := range valid {
			inFold[i] = true
		}

		for c, enc := range f.target {
			values := p.categorical[catOffset+c]
			trainVals := make([]string, 0, len(p.rows)-len(valid))
			trainY := make([]float64, 0, len(p.rows)-len(valid))
			for i := range p.rows {
				if !inFold[i] {
					trainVals = append(trainVals, values[i])
					trainY = append(trainY, p.y[i])
				}
			}
			oof := fitTarget(enc.Name, trainVals, trainY, spec.Smoothing)
			for _, i := range valid {
				m.X.Set(i, firstTE+c, oof.transform(values[i]))
			}
		}
	}
	return f, m, nil
}

// innerFolds shuffles 0..n-1 with seed and deals the positions into k folds
func innerFolds(n, k int, seed int64) [][]int {
	rng := rand.New(rand.NewPCG(uint64(seed), 0x7e))
	perm := rng.Perm(n)
	folds := make([][]int, k)
	for i, p := range perm {
		folds[i%k] = append(folds[i%k], p)
	}
	return folds
}
