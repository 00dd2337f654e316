// Package dataset holds the in-memory tabular representation handed over by
// the spreadsheet parsing collaborator. The reconciliation core consumes it
// through validated column lookup only; everything past normalization works
// on typed records instead.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an immutable named-column table. Cells are kept as strings as
// parsed; numeric interpretation happens at the point of use.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates a Table from column names and rows. Short rows are padded so
// every row spans all columns.
// Parameters:
//   - columns: ordered column names.
//   - rows: cell values per row, aligned to columns.
// Returns:
//   - *Table: constructed table.
func New(columns []string, rows [][]string) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	padded := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) < len(columns) {
			p := make([]string, len(columns))
			copy(p, r)
			r = p
		}
		padded[i] = r
	}
	return &Table{columns: columns, index: index, rows: padded}
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string {
	return t.columns
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// RequireColumns verifies that every named column exists.
// Parameters:
//   - names: column names that must be present.
// Returns:
//   - error: non-nil naming the first missing column.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("required column %q not found in table", n)
		}
	}
	return nil
}

// Cell returns the raw string value at (row, column). Missing columns yield
// the empty string.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.rows[row][i]
}

// Float parses the cell at (row, column) as a number.
// Parameters:
//   - row: row index.
//   - column: column name.
// Returns:
//   - float64: parsed value, 0 when empty or unparseable.
//   - bool: true when the cell held a parseable number.
func (t *Table) Float(row int, column string) (float64, bool) {
	raw := strings.TrimSpace(t.Cell(row, column))
	if raw == "" {
		return 0, false
	}
	// Tolerate thousands separators produced by spreadsheet formatting.
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WithCleanedColumns returns a copy of the table with the named string
// columns cleaned: surrounding whitespace trimmed, upper-cased, internal
// whitespace runs collapsed to a single space. Columns absent from the table
// are skipped.
// Parameters:
//   - names: columns to clean.
// Returns:
//   - *Table: new table with cleaned cells; the receiver is untouched.
func (t *Table) WithCleanedColumns(names ...string) *Table {
	targets := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			targets = append(targets, i)
		}
	}
	rows := make([][]string, len(t.rows))
	for ri, r := range t.rows {
		nr := make([]string, len(r))
		copy(nr, r)
		for _, ci := range targets {
			nr[ci] = CleanString(nr[ci])
		}
		rows[ri] = nr
	}
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// CleanString trims, upper-cases and collapses internal whitespace runs to a
// single space.
func CleanString(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.ContainsAny(s, " \t\n\r") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
