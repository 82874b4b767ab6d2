package totalreturn

import (
	"encoding/csv"
	"io"
	"strings"
)

// Table is a schema-tolerant view over one or more parsed CSV files.
// Brokerage exports disagree on column naming and ordering, so all column
// access goes through alias resolution instead of fixed indices.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Column resolves the first matching column name from the alias list,
// case-insensitively, and returns its index.
func (t *Table) Column(aliases ...string) (int, bool) {
	if t == nil {
		return 0, false
	}
	for _, alias := range aliases {
		for i, name := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(name), alias) {
				return i, true
			}
		}
	}
	return 0, false
}

// Cell returns the value of column idx in the given row, or "" when the
// row is shorter than the header (ragged exports) or idx is out of range.
func (t *Table) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseCSVTable reads one CSV document into a Table. The first record is
// the header. Ragged data rows are padded with empty cells; rows longer
// than the header keep only the header's width (some exports append a
// trailing disclaimer column).
func parseCSVTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]string, len(header))
		for i := range row {
			if i < len(record) {
				row[i] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// concatTables merges tables over the union of their columns, preserving
// first-seen column order. Cells absent in a source table become "".
// Multi-file uploads (one export per account or date window) are combined
// this way before deduplication so cross-file duplicates are removed too.
func concatTables(tables []*Table) *Table {
	merged := &Table{}
	index := map[string]int{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, name := range t.Columns {
			key := strings.ToLower(strings.TrimSpace(name))
			if _, ok := index[key]; !ok {
				index[key] = len(merged.Columns)
				merged.Columns = append(merged.Columns, name)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		cols := make([]int, len(t.Columns))
		for i, name := range t.Columns {
			cols[i] = index[strings.ToLower(strings.TrimSpace(name))]
		}
		for _, row := range t.Rows {
			out := make([]string, len(merged.Columns))
			for i, cell := range row {
				if i < len(cols) {
					out[cols[i]] = cell
				}
			}
			merged.Rows = append(merged.Rows, out)
		}
	}
	return merged
}
