// Package mobile exposes a string-based facade over the reconciliation
// core for gomobile bindings. Only types gomobile can bridge appear in
// the API: strings, byte slices, primitives, and errors.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"

	"totalreturn/pkg/totalreturn"
)

// Core wraps the total-return core for gomobile bindings.
type Core struct {
	core *totalreturn.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := totalreturn.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// SaveUpload stores a CSV document under the given kind and filename.
func (c *Core) SaveUpload(kind, filename string, content []byte) error {
	_, err := c.core.SaveUpload(kind, filename, content)
	return err
}

// ListUploadsJSON returns the stored documents of one kind as JSON.
func (c *Core) ListUploadsJSON(kind string) (string, error) {
	uploads, err := c.core.ListUploads(kind)
	if err != nil {
		return "", err
	}
	return marshalJSON(uploads)
}

// DeleteUpload removes one stored document.
func (c *Core) DeleteUpload(kind, filename string) (bool, error) {
	return c.core.DeleteUpload(kind, filename)
}

// ClearUploads removes every stored document of one kind.
func (c *Core) ClearUploads(kind string) (int64, error) {
	return c.core.ClearUploads(kind)
}

// ComputeSummaryJSON returns the per-symbol reconciliation as JSON.
func (c *Core) ComputeSummaryJSON() (string, error) {
	rows, err := c.core.ComputeSummary()
	if err != nil {
		return "", err
	}
	return marshalJSON(rows)
}

// GetPortfolioJSON returns the price-enriched portfolio view as JSON.
func (c *Core) GetPortfolioJSON() (string, error) {
	view, err := c.core.GetPortfolio(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(view)
}

func marshalJSON(data any) (string, error) {
	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(out), nil
}
