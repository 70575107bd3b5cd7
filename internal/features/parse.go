package features

import (
	"math"
	"strconv"
	"strings"

	"loanrisk/internal/dataset"
	"loanrisk/pkg/contracts/domain"
)

// parsed holds the typed cells of the rows that survived parsing
type parsed struct {
	// rows are source row positions
	rows []int
	// numeric[j][i] is column j of kept row i; NaN marks missing
	numeric [][]float64
	// categorical[j][i] for ordinal, one-hot then target-encoded columns
	categorical [][]string
	y           []float64
	issues      domain.RowIssues
}

// ParseNumeric reads a numeric cell. Blank is missing (NaN, ok); a trailing
// percent sign is accepted.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), true
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeCategory(s, placeholder string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder
	}
	return s
}

// parse converts table cells, excluding rows with a bad numeric cell or an
// unreadable target. The target is read when withTarget is set.
func (s Spec) parse(t *dataset.Table, withTarget bool) parsed {
	catCols := s.categoricalColumns()
	numIdx := columnIndexes(t, s.Numeric)
	catIdx := columnIndexes(t, catCols)
	targetIdx := t.Index(s.Target)

	p := parsed{
		numeric:     make([][]float64, len(s.Numeric)),
		categorical: make([][]string, len(catCols)),
		issues:      domain.RowIssues{},
	}
	for j := range p.numeric {
		p.numeric[j] = make([]float64, 0, t.Len())
	}
	for j := range p.categorical {
		p.categorical[j] = make([]string, 0, t.Len())
	}

	nums := make([]float64, len(numIdx))
rows:
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)

		var y float64
		if withTarget {
			o, err := domain.ParseOutcome(row[targetIdx])
			if err != nil {
				p.issues.Add(domain.ReasonInvalidTarget, 1)
				continue
			}
			y = float64(o)
		}

		for j, idx := range numIdx {
			v, ok := ParseNumeric(row[idx])
			if !ok {
				p.issues.Add(domain.ReasonInvalidNumeric, 1)
				continue rows
			}
			nums[j] = v
		}

		p.rows = append(p.rows, i)
		for j := range numIdx {
			p.numeric[j] = append(p.numeric[j], nums[j])
		}
		for j, idx := range catIdx {
			p.categorical[j] = append(p.categorical[j], normalizeCategory(row[idx], s.MissingPlaceholder))
		}
		if withTarget {
			p.y = append(p.y, y)
		}
	}
	return p
}

// categoricalColumns is the order of parsed.categorical
func (s Spec) categoricalColumns() []string {
	cols := s.ordinalColumns()
	cols = append(cols, s.OneHot...)
	return append(cols, s.TargetEncode...)
}

func columnIndexes(t *dataset.Table, cols []string) []int {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
	}
	return idx
}
