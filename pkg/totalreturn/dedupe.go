package totalreturn

import "strings"

// dedupeKeyColumns identify a transaction or position row when present.
// Overlapping export windows across files commonly replay the same rows.
var dedupeKeyColumns = []string{
	"Account Number",
	"Account Name",
	"Symbol",
	"Description",
	"Quantity",
	"Cost Basis Total",
	"Amount ($)",
	"Run Date",
	"Action",
}

const cellSep = "\x1f"

// dedupeTable removes fully identical rows, then rows identical across the
// identifying columns that exist in this table. Idempotent: running it on
// its own output removes nothing further.
func dedupeTable(t *Table) *Table {
	if t.Empty() {
		return &Table{}
	}

	out := &Table{Columns: t.Columns}
	seen := map[string]struct{}{}
	for _, row := range t.Rows {
		key := strings.Join(row, cellSep)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}

	var keyCols []int
	for _, name := range dedupeKeyColumns {
		if idx, ok := out.Column(name); ok {
			keyCols = append(keyCols, idx)
		}
	}
	if len(keyCols) == 0 {
		return out
	}

	keyed := &Table{Columns: out.Columns}
	seenKeys := map[string]struct{}{}
	for _, row := range out.Rows {
		parts := make([]string, len(keyCols))
		for i, idx := range keyCols {
			parts[i] = out.Cell(row, idx)
		}
		key := strings.Join(parts, cellSep)
		if _, ok := seenKeys[key]; ok {
			continue
		}
		seenKeys[key] = struct{}{}
		keyed.Rows = append(keyed.Rows, row)
	}
	return keyed
}
