// Package table reads header-driven tabular uploads (CSV and XLSX) into an
// in-memory Table of raw text cells and coerces columns into numeric series.
package table

import (
	"strings"
)

// Table is an ordered set of rows keyed by a header. Every row has exactly
// len(Columns) cells; short source rows are padded with empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// New builds a Table, padding or truncating rows to the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: columns,
		Rows:    make([][]string, 0, len(rows)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
	for _, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the raw cells of the named column, or nil if absent.
func (t *Table) Column(name string) []string {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Cell returns the raw value at row r of the named column.
func (t *Table) Cell(r int, name string) string {
	i, ok := t.index[name]
	if !ok || r < 0 || r >= len(t.Rows) {
		return ""
	}
	return t.Rows[r][i]
}

// clean trims every cell and drops rows that are entirely empty.
func clean(header []string, rows [][]string) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				empty = false
			}
		}
		if !empty {
			kept = append(kept, row)
		}
	}
	return New(cols, kept)
}
