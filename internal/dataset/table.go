package dataset

import (
	"fmt"

	apperrors "loanrisk/internal/errors"
)

// Table is an in-memory tabular dataset of string cells. Tables are treated
// as immutable: every operation returns a new Table and never edits cells in
// place, so row slices may be shared between tables.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable builds a table. Column names must be unique and every row must
// have one cell per column.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, apperrors.NewParsingError(fmt.Sprintf("duplicate column %q", c), nil)
		}
		index[c] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}
	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    rows,
	}, nil
}

func (t *Table) derive(rows [][]string) *Table {
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.columns)
}

// Index returns the position of col, or -1
func (t *Table) Index(col string) int {
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Has reports whether col exists
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require returns a schema error naming every column in cols that the table
// lacks. stage prefixes the message.
func (t *Table) Require(stage string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewSchemaError(stage, missing)
	}
	return nil
}

// Row returns row i. Callers must not modify it.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// Value returns the cell at row i, column col. Unknown columns read as "".
func (t *Table) Value(i int, col string) string {
	j, ok := t.index[col]
	if !ok {
		return ""
	}
	return t.rows[i][j]
}

// Column returns a copy of one column's cells
func (t *Table) Column(col string) ([]string, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, apperrors.NewSchemaError("column", []string{col})
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Select returns a table with only cols, in the given order
func (t *Table) Select(cols ...string) (*Table, error) {
	if err := t.Require("select", cols...); err != nil {
		return nil, err
	}
	pos := make([]int, len(cols))
	for i, c := range cols {
		pos[i] = t.index[c]
	}
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out := make([]string, len(pos))
		for k, j := range pos {
			out[k] = row[j]
		}
		rows[i] = out
	}
	return NewTable(cols, rows)
}

// Drop removes the listed columns that exist and returns the new table with
// the names actually removed, in table order.
func (t *Table) Drop(cols ...string) (*Table, []string) {
	remove := make(map[string]bool, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			remove[c] = true
		}
	}
	if len(remove) == 0 {
		return t, nil
	}

	var keep []string
	var dropped []string
	for _, c := range t.columns {
		if remove[c] {
			dropped = append(dropped, c)
		} else {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out, dropped
}

// Filter returns the rows for which keep reports true
func (t *Table) Filter(keep func(i int, row []string) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for i, row := range t.rows {
		if keep(i, row) {
			rows = append(rows, row)
		}
	}
	return t.derive(rows)
}

// Take returns the rows at the given positions, in that order
func (t *Table) Take(idx []int) *Table {
	rows := make([][]string, len(idx))
	for k, i := range idx {
		rows[k] = t.rows[i]
	}
	return t.derive(rows)
}

// WithColumn returns a table where col holds values. An existing column is
// replaced in place, a new one is appended.
func (t *Table) WithColumn(col string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %s has %d values, table has %d rows", col, len(values), len(t.rows))
	}

	j, exists := t.index[col]
	columns := t.Columns()
	if !exists {
		columns = append(columns, col)
		j = len(columns) - 1
	}

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out := make([]string, len(columns))
		copy(out, row)
		out[j] = values[i]
		rows[i] = out
	}
	return NewTable(columns, rows)
}
