package totalreturn

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Upload kinds: one store per source collection.
const (
	UploadKindActivity  = "activity"
	UploadKindPositions = "positions"
)

// Upload describes one stored CSV document.
type Upload struct {
	Kind       string `json:"kind"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

// NormalizeUploadKind validates and canonicalizes an upload kind.
func NormalizeUploadKind(raw string) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(raw))
	switch kind {
	case UploadKindActivity, UploadKindPositions:
		return kind, nil
	}
	return "", NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown upload kind: %s", raw))
}

func sanitizeCSVName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.New("file name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errors.New("file name must not include a path")
	}
	name = filepath.Base(name)
	if name == "." || name == ".." {
		return "", errors.New("invalid file name")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		return "", errors.New("upload a .csv file")
	}
	return name, nil
}

// SaveUpload stores a CSV document under (kind, filename). Re-uploading the
// same filename replaces the previous content, so repeated uploads of one
// export are idempotent. Content is not parsed here; corrupt files surface
// when a summary is computed, naming the offending file.
func (c *Core) SaveUpload(kind, filename string, content []byte) (Upload, error) {
	kind, err := NormalizeUploadKind(kind)
	if err != nil {
		return Upload{}, err
	}
	name, err := sanitizeCSVName(filename)
	if err != nil {
		return Upload{}, NewError(ErrCodeInvalidInput, err.Error())
	}
	if len(content) == 0 {
		return Upload{}, NewError(ErrCodeInvalidInput, "uploaded file is empty")
	}

	_, err = c.db.Exec(`
		INSERT INTO uploads (kind, filename, content, uploaded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(kind, filename) DO UPDATE SET
			content = excluded.content,
			uploaded_at = CURRENT_TIMESTAMP
	`, kind, name, content)
	if err != nil {
		return Upload{}, WrapError(ErrCodeDatabase, "save upload", err)
	}
	return Upload{Kind: kind, Filename: name, Size: int64(len(content))}, nil
}

// ListUploads returns the stored documents of one kind, sorted by filename.
func (c *Core) ListUploads(kind string) ([]Upload, error) {
	kind, err := NormalizeUploadKind(kind)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(`
		SELECT kind, filename, LENGTH(content), uploaded_at
		FROM uploads
		WHERE kind = ?
		ORDER BY filename
	`, kind)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list uploads", err)
	}
	defer rows.Close()

	uploads := []Upload{}
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.Kind, &u.Filename, &u.Size, &u.UploadedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan upload row", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "list uploads", err)
	}
	return uploads, nil
}

// DeleteUpload removes one stored document. Returns false when it did not
// exist.
func (c *Core) DeleteUpload(kind, filename string) (bool, error) {
	kind, err := NormalizeUploadKind(kind)
	if err != nil {
		return false, err
	}
	result, err := c.db.Exec("DELETE FROM uploads WHERE kind = ? AND filename = ?", kind, filename)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete upload", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete upload", err)
	}
	return n > 0, nil
}

// ClearUploads removes every stored document of one kind and returns how
// many were removed.
func (c *Core) ClearUploads(kind string) (int64, error) {
	kind, err := NormalizeUploadKind(kind)
	if err != nil {
		return 0, err
	}
	result, err := c.db.Exec("DELETE FROM uploads WHERE kind = ?", kind)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "clear uploads", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "clear uploads", err)
	}
	return n, nil
}

// loadTables parses every stored document of one kind and concatenates
// them into a single table. Returns nil when no documents are stored,
// which callers treat as a precondition failure distinct from an empty
// parse result.
func (c *Core) loadTables(kind string) (*Table, error) {
	rows, err := c.db.Query("SELECT filename, content FROM uploads WHERE kind = ? ORDER BY filename", kind)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load uploads", err)
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		var filename string
		var content []byte
		if err := rows.Scan(&filename, &content); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan upload row", err)
		}
		table, err := parseCSVTable(bytes.NewReader(content))
		if err != nil {
			return nil, WrapError(ErrCodeParse, fmt.Sprintf("failed to parse %s", filename), err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "load uploads", err)
	}
	if len(tables) == 0 {
		return nil, nil
	}
	return concatTables(tables), nil
}

// ComputeSummary rebuilds the per-symbol reconciliation from the stored
// CSV documents. Both source collections must have at least one upload;
// an empty symbol universe is a valid result, a missing collection is not.
func (c *Core) ComputeSummary() ([]SummaryRow, error) {
	activity, err := c.loadTables(UploadKindActivity)
	if err != nil {
		return nil, err
	}
	positions, err := c.loadTables(UploadKindPositions)
	if err != nil {
		return nil, err
	}
	if activity == nil || positions == nil {
		return nil, NewError(ErrCodeMissingData, "upload both an activity CSV and a positions CSV first")
	}
	return computeSummary(activity, positions), nil
}
