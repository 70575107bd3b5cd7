package features

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"loanrisk/internal/dataset"
	apperrors "loanrisk/internal/errors"
	"loanrisk/internal/shared/testutil"
	"loanrisk/pkg/contracts/domain"
)

func testSpec() Spec {
	return Spec{
		Numeric:            []string{"amt", "rate"},
		LogTransform:       []string{"amt"},
		Ordinal:            map[string][]string{"grade": {"A", "B", "C"}},
		OneHot:             []string{"home"},
		TargetEncode:       []string{"state"},
		Target:             domain.ColumnTarget,
		Smoothing:          1,
		InnerFolds:         2,
		Seed:               1,
		MissingPlaceholder: "missing",
	}
}

var testColumns = []string{"amt", "rate", "grade", "home", "state", domain.ColumnTarget}

func mustTable(t *testing.T, rows [][]string) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable(testColumns, rows)
	require.NoError(t, err)
	return table
}

func trainTable(t *testing.T) *dataset.Table {
	return mustTable(t, [][]string{
		{"100", "10%", "A", "RENT", "CA", "0"},
		{"", "12%", "B", "OWN", "CA", "1"},
		{"300", "14%", "C", " ", "NY", "0"},
		{"200", "", "A", "RENT", "TX", "1"},
	})
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		missing bool
		ok      bool
	}{
		{in: "12.5", want: 12.5, ok: true},
		{in: " 13.56% ", want: 13.56, ok: true},
		{in: "-3", want: -3, ok: true},
		{in: "", missing: true, ok: true},
		{in: "   ", missing: true, ok: true},
		{in: "n/a", ok: false},
		{in: "Inf", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := ParseNumeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			if tt.missing {
				assert.True(t, math.IsNaN(v))
			} else {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestFitTransformTrainingPartition(t *testing.T) {
	fitted, m, err := FitTransform(trainTable(t), testSpec())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"num__amt", "num__rate", "ord__grade",
		"ohe__home=OWN", "ohe__home=RENT", "ohe__home=missing",
		"te__state",
	}, m.Names)
	assert.Equal(t, fitted.FeatureNames(), m.Names)

	rows, cols := m.X.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 7, cols)
	assert.Equal(t, []float64{0, 1, 0, 1}, m.Y)
	assert.Equal(t, 0.5, fitted.Prior())

	// standardised columns have zero mean and unit population std
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, m.X)
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, std, 1e-12)
	}

	// blank rate imputed with the median 12, which is also the mean
	assert.InDelta(t, 0, m.X.At(3, 1), 1e-12)
	assert.InDelta(t, -math.Sqrt2, m.X.At(0, 1), 1e-12)

	assert.Equal(t, []float64{0, 1, 2, 0}, mat.Col(nil, 2, m.X))
	assert.Equal(t, []float64{0, 1, 0}, m.X.RawRowView(0)[3:6])
	assert.Equal(t, []float64{0, 0, 1}, m.X.RawRowView(2)[3:6], "blank category uses the placeholder")

	// each row is target encoded by the statistics of the other inner fold
	states := []string{"CA", "CA", "NY", "TX"}
	for _, valid := range innerFolds(4, 2, 1) {
		inFold := map[int]bool{}
		for _, i := range valid {
			inFold[i] = true
		}
		var vals []string
		var ys []float64
		for i := range states {
			if !inFold[i] {
				vals = append(vals, states[i])
				ys = append(ys, m.Y[i])
			}
		}
		enc := fitTarget("state", vals, ys, 1)
		for _, i := range valid {
			assert.InDelta(t, enc.transform(states[i]), m.X.At(i, 6), 1e-12)
		}
	}

	// the fitted set carries full-partition smoothed means, m=1 and prior 0.5
	full, err := fitted.Transform(trainTable(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, full.X.At(0, 6), 1e-12)
	assert.InDelta(t, 0.25, full.X.At(2, 6), 1e-12)
	assert.InDelta(t, 0.75, full.X.At(3, 6), 1e-12)
}

func TestFitTransformSmallPartition(t *testing.T) {
	spec := testSpec()
	spec.InnerFolds = 5

	// three rows with unique states fall back to leave-one-out encodings,
	// which are the prior of the two other rows
	table := mustTable(t, [][]string{
		{"100", "10", "A", "RENT", "CA", "0"},
		{"200", "11", "B", "OWN", "NY", "1"},
		{"300", "12", "C", "RENT", "TX", "1"},
	})
	_, m, err := FitTransform(table, spec)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.X.At(0, 6), 1e-12)
	assert.InDelta(t, 0.5, m.X.At(1, 6), 1e-12)
	assert.InDelta(t, 0.5, m.X.At(2, 6), 1e-12)

	single := mustTable(t, [][]string{{"100", "10", "A", "RENT", "CA", "1"}})
	_, _, err = FitTransform(single, spec)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestTransformHeldOutUsesTrainingStatistics(t *testing.T) {
	fitted, err := Fit(trainTable(t), testSpec())
	require.NoError(t, err)

	holdout := mustTable(t, [][]string{
		{"-5", "20", "Z", "MORTGAGE", "WA", "1"},
		{"200", "12", "B", "OWN", "NY", "0"},
	})
	m, err := fitted.Transform(holdout)
	require.NoError(t, err)

	assert.InDelta(t, (0-fitted.scaler.Mean[0])/fitted.scaler.Scale[0], m.X.At(0, 0), 1e-12,
		"negative clamps to 0 before log1p")
	assert.InDelta(t, (20-12)/math.Sqrt2, m.X.At(0, 1), 1e-12)
	assert.Equal(t, -1.0, m.X.At(0, 2), "unknown ordinal level")
	assert.Equal(t, []float64{0, 0, 0}, m.X.RawRowView(0)[3:6], "unseen one-hot category")

	assert.Equal(t, fitted.Prior(), m.X.At(0, 6), "unseen category encodes to the training prior")
	assert.InDelta(t, 0.25, m.X.At(1, 6), 1e-12)

	// the fitted set is unchanged by transforming other data
	again, err := fitted.Transform(trainTable(t))
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt2, again.X.At(0, 1), 1e-12)
}

func TestTransformWithoutTarget(t *testing.T) {
	fitted, err := Fit(trainTable(t), testSpec())
	require.NoError(t, err)

	unlabeled, err := dataset.NewTable(testColumns[:5], [][]string{{"1", "2", "A", "RENT", "CA"}})
	require.NoError(t, err)

	m, err := fitted.Transform(unlabeled)
	require.NoError(t, err)
	assert.Nil(t, m.Y)
	r, _ := m.X.Dims()
	assert.Equal(t, 1, r)
}

func TestRowExclusion(t *testing.T) {
	table := mustTable(t, [][]string{
		{"100", "10", "A", "RENT", "CA", "0"},
		{"abc", "10", "A", "RENT", "CA", "1"},
		{"100", "10", "A", "RENT", "CA", "maybe"},
		{"150", "11", "B", "OWN", "NY", "1"},
	})

	_, m, err := FitTransform(table, testSpec())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3}, m.Rows)
	assert.Equal(t, 2, m.ExcludedRows)
	assert.Equal(t, 1, m.Issues[domain.ReasonInvalidNumeric])
	assert.Equal(t, 1, m.Issues[domain.ReasonInvalidTarget])
}

func TestFitSchemaError(t *testing.T) {
	table, err := dataset.NewTable([]string{"amt", "grade"}, [][]string{{"1", "A"}})
	require.NoError(t, err)

	_, err = Fit(table, testSpec())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	for _, col := range []string{"rate", "home", "state", domain.ColumnTarget} {
		assert.Contains(t, err.Error(), col)
	}

	fitted, err := Fit(trainTable(t), testSpec())
	require.NoError(t, err)
	_, err = fitted.Transform(table)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestFitNoUsableRows(t *testing.T) {
	table := mustTable(t, [][]string{{"x", "1", "A", "RENT", "CA", "0"}})
	_, err := Fit(table, testSpec())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFitTransformOutOfFoldEncoding(t *testing.T) {
	rows := make([][]string, 40)
	for i := range rows {
		rows[i] = []string{"100", "10", "A", "RENT", fmt.Sprintf("s%d", i), fmt.Sprint(i % 2)}
	}
	table := mustTable(t, rows)

	spec := testSpec()
	spec.InnerFolds = 2
	spec.Seed = 3

	fitted, m, err := FitTransform(table, spec)
	require.NoError(t, err)

	// every category is unique, so an out-of-fold encoding can only be the
	// other fold's prior and never reflects the row's own label
	oof := map[float64]bool{}
	for i := 0; i < 40; i++ {
		oof[m.X.At(i, 6)] = true
	}
	assert.LessOrEqual(t, len(oof), 2)

	full, err := fitted.Transform(table)
	require.NoError(t, err)
	assert.InDelta(t, (0+0.5)/2, full.X.At(0, 6), 1e-12)
	assert.InDelta(t, (1+0.5)/2, full.X.At(1, 6), 1e-12)
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"target as feature", func(s *Spec) { s.OneHot = append(s.OneHot, domain.ColumnTarget) }},
		{"duplicate column", func(s *Spec) { s.TargetEncode = append(s.TargetEncode, "home") }},
		{"log of non numeric", func(s *Spec) { s.LogTransform = []string{"grade"} }},
		{"empty ordinal", func(s *Spec) { s.Ordinal["term"] = nil }},
		{"no target", func(s *Spec) { s.Target = "" }},
		{"negative smoothing", func(s *Spec) { s.Smoothing = -1 }},
		{"target encoding without inner folds", func(s *Spec) { s.InnerFolds = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec()
			tt.mutate(&spec)
			assert.Error(t, spec.Validate())
		})
	}
	assert.NoError(t, DefaultSpec().Validate())
}

func TestDefaultSpecOnAnonymizedFixture(t *testing.T) {
	raw := testutil.DefaultLoanFixture().Table(t)
	// the fixture carries loan_status; derive the label the way the
	// anonymizer does so the default spec can run on it
	status, err := raw.Column(domain.ColumnLoanStatus)
	require.NoError(t, err)
	labels := make([]string, len(status))
	for i, s := range status {
		o, ok := domain.ResolveOutcome(s)
		if !ok {
			labels[i] = ""
			continue
		}
		labels[i] = o.String()
	}
	table, err := raw.WithColumn(domain.ColumnTarget, labels)
	require.NoError(t, err)

	_, m, err := FitTransform(table, DefaultSpec())
	require.NoError(t, err)
	assert.Greater(t, m.Issues[domain.ReasonInvalidTarget], 0)
	r, c := m.X.Dims()
	assert.Equal(t, table.Len()-m.ExcludedRows, r)
	assert.Equal(t, len(m.Names), c)
	assert.Contains(t, m.Names, "ord__emp_length")
	assert.Contains(t, m.Names, "te__addr_state")
}
