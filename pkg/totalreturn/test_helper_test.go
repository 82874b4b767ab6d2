package totalreturn

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "totalreturn-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// mustTable parses a CSV literal into a Table, failing the test on error.
func mustTable(t *testing.T, csvText string) *Table {
	t.Helper()
	table, err := parseCSVTable(strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("failed to parse test CSV: %v", err)
	}
	return table
}

// testUpload stores a CSV document, failing the test on error.
func testUpload(t *testing.T, core *Core, kind, filename, csvText string) {
	t.Helper()
	if _, err := core.SaveUpload(kind, filename, []byte(csvText)); err != nil {
		t.Fatalf("failed to save test upload %s/%s: %v", kind, filename, err)
	}
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// assertFloatEquals fails the test if the floats are not approximately equal.
func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if !floatEquals(got, want, 0.001) {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

// assertErrorCode fails the test if the error does not carry the code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error with code %s but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Errorf("%s: got error %v, want code %s", msg, err, code)
	}
}
