package domain

import "sort"

// Row exclusion reasons
const (
	ReasonMalformedRow     = "malformed_row"
	ReasonUnparseableDate  = "unparseable_issue_d"
	ReasonOutsideRange     = "outside_date_range"
	ReasonUnresolvedStatus = "unresolved_status"
	ReasonInvalidNumeric   = "invalid_numeric"
	ReasonInvalidTarget    = "invalid_target"
)

// RowIssues counts rows excluded by a stage, keyed by reason. Row-level
// problems never abort a stage; they end up here.
type RowIssues map[string]int

// Add records n excluded rows for reason
func (r RowIssues) Add(reason string, n int) {
	if n <= 0 {
		return
	}
	r[reason] += n
}

// Total returns the number of excluded rows over all reasons
func (r RowIssues) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}

// Reasons returns the recorded reasons in sorted order
func (r RowIssues) Reasons() []string {
	reasons := make([]string, 0, len(r))
	for reason := range r {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// Merge adds every count from other
func (r RowIssues) Merge(other RowIssues) {
	for reason, n := range other {
		r.Add(reason, n)
	}
}
