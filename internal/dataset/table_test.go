package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loanrisk/internal/errors"
)

func newLoans(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]string{"id", "loan_amnt", "grade", "loan_status"},
		[][]string{
			{"1", "1000", "A", "Fully Paid"},
			{"2", "2500", "B", "Charged Off"},
			{"3", "4000", "C", "Current"},
		})
	require.NoError(t, err)
	return table
}

func TestNewTable(t *testing.T) {
	_, err := NewTable([]string{"a", "a"}, nil)
	assert.Error(t, err, "duplicate columns")

	_, err = NewTable([]string{"a", "b"}, [][]string{{"1"}})
	assert.Error(t, err, "ragged row")
}

func TestTableAccessors(t *testing.T) {
	table := newLoans(t)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 4, table.Width())
	assert.Equal(t, 2, table.Index("grade"))
	assert.Equal(t, -1, table.Index("nope"))
	assert.True(t, table.Has("loan_status"))
	assert.Equal(t, "B", table.Value(1, "grade"))
	assert.Equal(t, "", table.Value(1, "nope"))

	col, err := table.Column("loan_amnt")
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "2500", "4000"}, col)

	_, err = table.Column("nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestTableRequire(t *testing.T) {
	table := newLoans(t)

	assert.NoError(t, table.Require("anonymize", "id", "loan_status"))

	err := table.Require("anonymize", "issue_d", "id", "annual_inc")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Contains(t, err.Error(), "annual_inc, issue_d")
}

func TestTableSelectDrop(t *testing.T) {
	table := newLoans(t)

	sel, err := table.Select("grade", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"grade", "id"}, sel.Columns())
	assert.Equal(t, []string{"A", "1"}, sel.Row(0))

	dropped, names := table.Drop("loan_status", "member_id", "id")
	assert.Equal(t, []string{"id", "loan_status"}, names)
	assert.Equal(t, []string{"loan_amnt", "grade"}, dropped.Columns())
	assert.Equal(t, 4, table.Width(), "source table untouched")

	same, names := table.Drop("member_id")
	assert.Nil(t, names)
	assert.Same(t, table, same)
}

func TestTableFilterTakeWithColumn(t *testing.T) {
	table := newLoans(t)

	done := table.Filter(func(_ int, row []string) bool { return row[3] != "Current" })
	assert.Equal(t, 2, done.Len())

	taken := table.Take([]int{2, 0})
	assert.Equal(t, "3", taken.Value(0, "id"))
	assert.Equal(t, "1", taken.Value(1, "id"))

	withTarget, err := table.WithColumn("target_default", []string{"0", "1", "0"})
	require.NoError(t, err)
	assert.Equal(t, "1", withTarget.Value(1, "target_default"))
	assert.False(t, table.Has("target_default"))

	replaced, err := table.WithColumn("grade", []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, 4, replaced.Width())
	assert.Equal(t, "y", replaced.Value(1, "grade"))
	assert.Equal(t, "B", table.Value(1, "grade"))

	_, err = table.WithColumn("bad", []string{"1"})
	assert.Error(t, err)
}
