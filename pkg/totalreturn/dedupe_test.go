package totalreturn

import "testing"

func TestDedupeTableExactRows(t *testing.T) {
	table := mustTable(t, "Symbol,Quantity\nAAPL,10\nAAPL,10\nMSFT,5\n")
	out := dedupeTable(table)
	if out.Len() != 2 {
		t.Errorf("expected 2 rows after dedupe, got %d", out.Len())
	}
}

func TestDedupeTableKeyColumns(t *testing.T) {
	// Same identifying columns, different non-key column: still a duplicate.
	table := mustTable(t,
		"Run Date,Action,Symbol,Quantity,Amount ($),Settlement Date\n"+
			"01/02/2024,YOU BOUGHT,AAPL,10,-1000.00,01/04/2024\n"+
			"01/02/2024,YOU BOUGHT,AAPL,10,-1000.00,01/05/2024\n")
	out := dedupeTable(table)
	if out.Len() != 1 {
		t.Errorf("expected 1 row after key dedupe, got %d", out.Len())
	}
}

func TestDedupeTableKeepsDistinctRows(t *testing.T) {
	table := mustTable(t,
		"Run Date,Action,Symbol,Quantity,Amount ($)\n"+
			"01/02/2024,YOU BOUGHT,AAPL,10,-1000.00\n"+
			"01/03/2024,YOU BOUGHT,AAPL,10,-1000.00\n")
	out := dedupeTable(table)
	if out.Len() != 2 {
		t.Errorf("distinct run dates should both survive, got %d rows", out.Len())
	}
}

func TestDedupeTableNoKeyColumns(t *testing.T) {
	// Without any identifying column only the exact-duplicate pass runs.
	table := mustTable(t, "Foo,Bar\n1,2\n1,2\n1,3\n")
	out := dedupeTable(table)
	if out.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", out.Len())
	}
}

func TestDedupeTableIdempotent(t *testing.T) {
	table := mustTable(t,
		"Run Date,Action,Symbol,Quantity,Amount ($)\n"+
			"01/02/2024,YOU BOUGHT,AAPL,10,-1000.00\n"+
			"01/02/2024,YOU BOUGHT,AAPL,10,-1000.00\n"+
			"01/03/2024,YOU SOLD,AAPL,4,480.00\n")
	once := dedupeTable(table)
	twice := dedupeTable(once)
	if once.Len() != twice.Len() {
		t.Errorf("dedupe not idempotent: %d then %d rows", once.Len(), twice.Len())
	}
}

func TestDedupeTableEmpty(t *testing.T) {
	out := dedupeTable(&Table{})
	if !out.Empty() {
		t.Error("expected empty output for empty input")
	}
	out = dedupeTable(nil)
	if !out.Empty() {
		t.Error("expected empty output for nil input")
	}
}
