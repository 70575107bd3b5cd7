package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// numericImputer fills missing values with the training median and
// optionally log-transforms. Standardisation happens afterwards over the
// whole numeric block.
type numericImputer struct {
	Name   string
	Median float64
	Log    bool
}

func fitNumeric(name string, values []float64, logTransform bool) numericImputer {
	return numericImputer{Name: name, Log: logTransform, Median: median(values)}
}

func (s numericImputer) prepare(v float64) float64 {
	if math.IsNaN(v) {
		v = s.Median
	}
	if s.Log {
		v = math.Log1p(math.Max(v, 0))
	}
	return v
}

// median of the non-missing values; 0 when every value is missing
func median(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	sort.Float64s(present)
	n := len(present)
	if n%2 == 1 {
		return present[n/2]
	}
	return (present[n/2-1] + present[n/2]) / 2
}

// ordinalEncoder maps levels to their rank; unknown levels encode as -1
type ordinalEncoder struct {
	Name   string
	Levels map[string]int
}

func newOrdinal(name string, levels []string) ordinalEncoder {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return ordinalEncoder{Name: name, Levels: m}
}

func (e ordinalEncoder) transform(v string) float64 {
	if r, ok := e.Levels[v]; ok {
		return float64(r)
	}
	return -1
}

// targetEncoder replaces a category with its smoothed default rate:
// (sum + m*prior) / (count + m). Unseen categories get the prior.
type targetEncoder struct {
	Name   string
	Prior  float64
	Values map[string]float64
}

func fitTarget(name string, values []string, y []float64, smoothing float64) targetEncoder {
	prior := floats.Sum(y) / float64(len(y))

	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for i, v := range values {
		sums[v] += y[i]
		counts[v]++
	}

	enc := make(map[string]float64, len(sums))
	for v, n := range counts {
		enc[v] = (sums[v] + smoothing*prior) / (n + smoothing)
	}
	return targetEncoder{Name: name, Prior: prior, Values: enc}
}

func (e targetEncoder) transform(v string) float64 {
	if x, ok := e.Values[v]; ok {
		return x
	}
	return e.Prior
}
