package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the normalised issue date format of every output
const DateLayout = "2006-01-02"

// Column names the pipeline depends on
const (
	ColumnIssueDate  = "issue_d"
	ColumnLoanStatus = "loan_status"
	ColumnID         = "id"
	ColumnTarget     = "target_default"
)

// Outcome is the binary label of a finished loan
type Outcome int

const (
	OutcomePaid    Outcome = 0
	OutcomeDefault Outcome = 1
)

// String returns the label as written to the sample file
func (o Outcome) String() string {
	if o == OutcomeDefault {
		return "1"
	}
	return "0"
}

// PaidStatuses are the loan_status values that resolve to OutcomePaid
var PaidStatuses = []string{
	"Fully Paid",
	"Does not meet the credit policy. Status:Fully Paid",
}

// DefaultStatuses are the loan_status values that resolve to OutcomeDefault
var DefaultStatuses = []string{
	"Charged Off",
	"Default",
	"Late (31-120 days)",
	"In Grace Period",
	"Does not meet the credit policy. Status:Charged Off",
	"Late (16-30 days)",
}

var statusOutcomes = func() map[string]Outcome {
	m := make(map[string]Outcome, len(PaidStatuses)+len(DefaultStatuses))
	for _, s := range PaidStatuses {
		m[s] = OutcomePaid
	}
	for _, s := range DefaultStatuses {
		m[s] = OutcomeDefault
	}
	return m
}()

// ResolveOutcome maps a raw loan_status to an outcome. In-progress and
// unknown statuses (Current, Issued, ...) report false.
func ResolveOutcome(status string) (Outcome, bool) {
	o, ok := statusOutcomes[strings.TrimSpace(status)]
	return o, ok
}

// ParseOutcome reads a target cell ("0"/"1", tolerating "0.0"/"1.0")
func ParseOutcome(s string) (Outcome, error) {
	switch strings.TrimSpace(s) {
	case "0", "0.0":
		return OutcomePaid, nil
	case "1", "1.0":
		return OutcomeDefault, nil
	}
	return 0, fmt.Errorf("invalid outcome %q", s)
}

// DateRange is an inclusive window of issue dates
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange parses an inclusive window from two ISO dates
func NewDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	r := DateRange{From: f, To: t}
	return r, r.Validate()
}

// Validate rejects empty and inverted windows
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("date range bounds must be set")
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("date range is inverted: %s > %s",
			r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return nil
}

// Contains reports whether t falls inside the window, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// String renders the window as from..to
func (r DateRange) String() string {
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}
