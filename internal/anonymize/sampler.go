package anonymize

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"strconv"

	"loanrisk/pkg/contracts/domain"
)

// Stratum identifies one (issue year, outcome) cell
type Stratum struct {
	Year    int
	Outcome domain.Outcome
}

// Key is the stable textual form used to derive the stratum's random stream
func (s Stratum) Key() string {
	return strconv.Itoa(s.Year) + "_" + s.Outcome.String()
}

func (s Stratum) less(o Stratum) bool {
	if s.Year != o.Year {
		return s.Year < o.Year
	}
	return s.Outcome < o.Outcome
}

// Allocation is the planned sample size of a stratum
type Allocation struct {
	Stratum    Stratum
	Population int
	Sample     int
}

// Allocate splits target across strata proportionally to their population:
// floor(target * share), at least one row for non-empty strata, never more
// than the stratum holds. The result is sorted by stratum.
func Allocate(counts map[Stratum]int, target int) []Allocation {
	total := 0
	for _, n := range counts {
		total += n
	}

	out := make([]Allocation, 0, len(counts))
	for s, n := range counts {
		if n <= 0 {
			continue
		}
		size := int(int64(target) * int64(n) / int64(total))
		if size == 0 {
			size = 1
		}
		if size > n {
			size = n
		}
		out = append(out, Allocation{Stratum: s, Population: n, Sample: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stratum.less(out[j].Stratum) })
	return out
}

// SelectStratum picks k of the n positions 0..n-1 with a partial
// Fisher-Yates shuffle seeded from (seed, stratum). The picks are returned
// in ascending order.
func SelectStratum(n, k int, seed int64, s Stratum) []int {
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	rng := rand.New(rand.NewPCG(uint64(seed), streamID(s)))
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		pos[i], pos[j] = pos[j], pos[i]
	}

	picked := pos[:k]
	sort.Ints(picked)
	return picked
}

func streamID(s Stratum) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.Key()))
	return h.Sum64()
}
