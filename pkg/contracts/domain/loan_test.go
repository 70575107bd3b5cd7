package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		status string
		want   Outcome
		ok     bool
	}{
		{"Fully Paid", OutcomePaid, true},
		{"Does not meet the credit policy. Status:Fully Paid", OutcomePaid, true},
		{"Charged Off", OutcomeDefault, true},
		{" Default ", OutcomeDefault, true},
		{"Late (31-120 days)", OutcomeDefault, true},
		{"Late (16-30 days)", OutcomeDefault, true},
		{"In Grace Period", OutcomeDefault, true},
		{"Does not meet the credit policy. Status:Charged Off", OutcomeDefault, true},
		{"Current", 0, false},
		{"Issued", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, ok := ResolveOutcome(tt.status)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDefault, o)
	assert.Equal(t, "1", o.String())

	o, err = ParseOutcome("0.0")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, o)

	_, err = ParseOutcome("yes")
	assert.Error(t, err)
}

func TestDateRange(t *testing.T) {
	r, err := NewDateRange("2015-01-01", "2020-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2015-01-01..2020-12-31", r.String())

	assert.True(t, r.Contains(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = NewDateRange("2020-01-01", "2015-01-01")
	assert.Error(t, err)
	_, err = NewDateRange("bad", "2015-01-01")
	assert.Error(t, err)
}

func TestRowIssues(t *testing.T) {
	issues := RowIssues{}
	issues.Add(ReasonUnresolvedStatus, 3)
	issues.Add(ReasonMalformedRow, 0)
	issues.Merge(RowIssues{ReasonOutsideRange: 2, ReasonUnresolvedStatus: 1})

	assert.Equal(t, 6, issues.Total())
	assert.Equal(t, []string{ReasonOutsideRange, ReasonUnresolvedStatus}, issues.Reasons())
	assert.Equal(t, 4, issues[ReasonUnresolvedStatus])
}
