// Package table persists flattened invoice rows to an append-only spreadsheet.
package table

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Table is a batch of rows keyed by column name, with the columns in write order.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// FromRows builds a Table over the default column order.
func FromRows(rows []invoice.FlatRow) Table {
	t := Table{Columns: append([]string(nil), constants.Columns...)}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}
	return t
}

// Row returns the values of row i laid out on columns; missing cells get the sentinel.
func (t Table) Row(i int, columns []string) []any {
	out := make([]any, len(columns))
	for j, c := range columns {
		v, ok := t.Rows[i][c]
		if !ok || v == nil {
			v = constants.NotAvailable
		}
		out[j] = v
	}
	return out
}

// reconcile extends header with every column of t it lacks, keeping t's column order
// for the additions. It returns the new header and the columns that were added.
func reconcile(header []string, t Table) ([]string, []string) {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	merged := append([]string(nil), header...)
	var added []string
	for _, c := range t.Columns {
		if !seen[c] {
			seen[c] = true
			merged = append(merged, c)
			added = append(added, c)
		}
	}
	return merged, added
}
