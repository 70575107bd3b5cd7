package features

import (
	"fmt"
	"sort"

	"loanrisk/internal/config"
	apperrors "loanrisk/internal/errors"
	"loanrisk/pkg/contracts/domain"
)

// Spec declares which columns feed the model and how each is encoded
type Spec struct {
	Numeric      []string
	LogTransform []string
	// Ordinal maps a column to its levels in ascending order
	Ordinal      map[string][]string
	OneHot       []string
	TargetEncode []string
	Target       string

	// Smoothing is the pseudo-count m pulling category means to the prior
	Smoothing float64
	// InnerFolds is the number of folds FitTransform cross-fits target
	// encodings over; at least 2 when TargetEncode is set
	InnerFolds         int
	Seed               int64
	MissingPlaceholder string
}

// Lending Club column defaults
var (
	DefaultNumeric = []string{
		"loan_amnt", "int_rate", "installment", "annual_inc", "dti", "revol_util", "open_acc",
	}
	DefaultLogTransform = []string{"loan_amnt", "annual_inc", "installment"}
	DefaultOrdinal      = map[string][]string{
		"grade": {"A", "B", "C", "D", "E", "F", "G"},
		"term":  {"36 months", "60 months"},
		"emp_length": {
			"< 1 year", "1 year", "2 years", "3 years", "4 years", "5 years",
			"6 years", "7 years", "8 years", "9 years", "10+ years",
		},
	}
	DefaultOneHot       = []string{"home_ownership", "verification_status", "purpose"}
	DefaultTargetEncode = []string{"addr_state", "sub_grade"}
)

// DefaultSpec targets the anonymized Lending Club sample
func DefaultSpec() Spec {
	ordinal := make(map[string][]string, len(DefaultOrdinal))
	for k, v := range DefaultOrdinal {
		ordinal[k] = v
	}
	return Spec{
		Numeric:            DefaultNumeric,
		LogTransform:       DefaultLogTransform,
		Ordinal:            ordinal,
		OneHot:             DefaultOneHot,
		TargetEncode:       DefaultTargetEncode,
		Target:             domain.ColumnTarget,
		Smoothing:          10,
		InnerFolds:         5,
		Seed:               42,
		MissingPlaceholder: "missing",
	}
}

// SpecFromConfig overlays configured values on DefaultSpec. Empty column
// lists keep the defaults.
func SpecFromConfig(cfg config.FeaturesConfig, seed int64) Spec {
	spec := DefaultSpec()
	spec.Smoothing = cfg.Smoothing
	spec.InnerFolds = cfg.InnerFolds
	spec.Seed = seed
	if cfg.MissingPlaceholder != "" {
		spec.MissingPlaceholder = cfg.MissingPlaceholder
	}
	if len(cfg.Numeric) > 0 {
		spec.Numeric = cfg.Numeric
	}
	if len(cfg.LogTransform) > 0 {
		spec.LogTransform = cfg.LogTransform
	}
	if len(cfg.OneHot) > 0 {
		spec.OneHot = cfg.OneHot
	}
	if len(cfg.TargetEncode) > 0 {
		spec.TargetEncode = cfg.TargetEncode
	}
	return spec
}

// InputColumns lists every feature column, without the target
func (s Spec) InputColumns() []string {
	cols := append([]string(nil), s.Numeric...)
	cols = append(cols, s.ordinalColumns()...)
	cols = append(cols, s.OneHot...)
	return append(cols, s.TargetEncode...)
}

func (s Spec) ordinalColumns() []string {
	cols := make([]string, 0, len(s.Ordinal))
	for c := range s.Ordinal {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Validate rejects specs that would leak the target or encode a column twice
func (s Spec) Validate() error {
	if s.Target == "" {
		return apperrors.NewValidationError("feature spec needs a target column")
	}
	if s.Smoothing < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("smoothing must be >= 0, got %v", s.Smoothing))
	}
	if len(s.TargetEncode) > 0 && s.InnerFolds < 2 {
		return apperrors.NewValidationError(
			fmt.Sprintf("target encoding needs at least 2 inner folds, got %d", s.InnerFolds))
	}

	seen := make(map[string]bool)
	for _, c := range s.InputColumns() {
		if c == s.Target {
			return apperrors.NewValidationError(fmt.Sprintf("target %q cannot be used as a feature", c))
		}
		if seen[c] {
			return apperrors.NewValidationError(fmt.Sprintf("column %q is configured more than once", c))
		}
		seen[c] = true
	}

	numeric := make(map[string]bool, len(s.Numeric))
	for _, c := range s.Numeric {
		numeric[c] = true
	}
	for _, c := range s.LogTransform {
		if !numeric[c] {
			return apperrors.NewValidationError(fmt.Sprintf("log transform column %q is not numeric", c))
		}
	}
	for c, levels := range s.Ordinal {
		if len(levels) == 0 {
			return apperrors.NewValidationError(fmt.Sprintf("ordinal column %q has no levels", c))
		}
	}
	return nil
}
