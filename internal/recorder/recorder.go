package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Open opens the call log and its search index under dir.
func Open(ctx context.Context, dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recorder dir: %w", err)
	}
	dbPath := filepath.Join(dir, "runs.db")

	db, err := NewDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	idx, err := NewSearchIndex(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db.WithIndex(idx), nil
}

// Search queries the attached index.
func (d *DB) Search(query, runID string, k int) ([]SearchHit, error) {
	if d.index == nil {
		return nil, fmt.Errorf("search index not attached")
	}
	return d.index.Search(query, runID, k)
}
