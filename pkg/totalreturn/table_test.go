package totalreturn

import (
	"strings"
	"testing"
)

func TestParseCSVTable(t *testing.T) {
	table := mustTable(t, "Symbol,Quantity,Amount ($)\nAAPL,10,-1000.00\nMSFT,5,-500.00\n")

	if len(table.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(table.Columns))
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	idx, ok := table.Column("Symbol")
	if !ok {
		t.Fatal("Symbol column not found")
	}
	if got := table.Cell(table.Rows[0], idx); got != "AAPL" {
		t.Errorf("row 0 symbol = %q, want AAPL", got)
	}
}

func TestParseCSVTableStripsBOM(t *testing.T) {
	table := mustTable(t, "\uFEFFSymbol,Quantity\nAAPL,10\n")
	if _, ok := table.Column("Symbol"); !ok {
		t.Errorf("Symbol column not found after BOM strip, columns: %v", table.Columns)
	}
}

func TestParseCSVTableRaggedRows(t *testing.T) {
	// Short rows are padded; long rows are truncated to the header width.
	table := mustTable(t, "Symbol,Quantity,Amount\nAAPL,10\nMSFT,5,-500,disclaimer text\n")

	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	amtIdx, _ := table.Column("Amount")
	if got := table.Cell(table.Rows[0], amtIdx); got != "" {
		t.Errorf("padded cell = %q, want empty", got)
	}
	if len(table.Rows[1]) != 3 {
		t.Errorf("long row kept %d cells, want 3", len(table.Rows[1]))
	}
}

func TestParseCSVTableEmpty(t *testing.T) {
	table, err := parseCSVTable(strings.NewReader(""))
	assertNoError(t, err, "parse empty input")
	if !table.Empty() {
		t.Errorf("expected empty table")
	}
}

func TestColumnCaseInsensitive(t *testing.T) {
	table := mustTable(t, "symbol,QUANTITY\nAAPL,10\n")
	if _, ok := table.Column("Symbol"); !ok {
		t.Error("Symbol should match lowercase header")
	}
	if _, ok := table.Column("Quantity"); !ok {
		t.Error("Quantity should match uppercase header")
	}
	if _, ok := table.Column("Missing"); ok {
		t.Error("Missing should not match any header")
	}
}

func TestColumnAliasPriority(t *testing.T) {
	table := mustTable(t, "Amount,Amount ($)\n1,2\n")
	// "Amount ($)" precedes "Amount" in the alias list, so it wins even
	// though "Amount" appears first in the header.
	idx, ok := table.Column(amountAliases...)
	if !ok {
		t.Fatal("amount column not resolved")
	}
	if got := table.Cell(table.Rows[0], idx); got != "2" {
		t.Errorf("resolved cell = %q, want 2", got)
	}
}

func TestConcatTables(t *testing.T) {
	a := mustTable(t, "Symbol,Quantity\nAAPL,10\n")
	b := mustTable(t, "Symbol,Cost Basis\nMSFT,900\n")

	merged := concatTables([]*Table{a, b})

	if len(merged.Columns) != 3 {
		t.Fatalf("expected union of 3 columns, got %v", merged.Columns)
	}
	if merged.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", merged.Len())
	}

	qtyIdx, _ := merged.Column("Quantity")
	costIdx, _ := merged.Column("Cost Basis")
	if got := merged.Cell(merged.Rows[0], costIdx); got != "" {
		t.Errorf("row from table a should have empty cost basis, got %q", got)
	}
	if got := merged.Cell(merged.Rows[1], qtyIdx); got != "" {
		t.Errorf("row from table b should have empty quantity, got %q", got)
	}
	if got := merged.Cell(merged.Rows[1], costIdx); got != "900" {
		t.Errorf("row from table b cost basis = %q, want 900", got)
	}
}

func TestConcatTablesCaseInsensitiveColumnIdentity(t *testing.T) {
	a := mustTable(t, "Symbol\nAAPL\n")
	b := mustTable(t, "SYMBOL\nMSFT\n")

	merged := concatTables([]*Table{a, b})
	if len(merged.Columns) != 1 {
		t.Fatalf("expected 1 merged column, got %v", merged.Columns)
	}
	if merged.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", merged.Len())
	}
}
