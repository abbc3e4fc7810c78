package fileindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// DiskCache persists an Index's entry snapshot to a single table in a
// modernc.org/sqlite database file, grounded on the teacher's
// internal/eventstore/sqlite.go (sql.Open("sqlite", path), a
// CREATE-TABLE-IF-NOT-EXISTS schema, and a mutex guarding the *sql.DB). Per
// SPEC_FULL.md D.4 it exists purely to serve completion/workspace-symbol
// reads from a warm snapshot before the first real rebuild finishes; the
// in-memory Index stays authoritative once that rebuild completes.
type DiskCache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenDiskCache opens (creating if absent) the sqlite file at path and
// ensures its schema exists.
func OpenDiskCache(path string) (*DiskCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index cache: %w", err)
	}
	dc := &DiskCache{db: db}
	if err := dc.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize index cache schema: %w", err)
	}
	return dc, nil
}

func (dc *DiskCache) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		rel_path     TEXT PRIMARY KEY,
		types        TEXT NOT NULL,
		tags         TEXT NOT NULL,
		display_name TEXT NOT NULL,
		title        TEXT NOT NULL,
		id           TEXT NOT NULL,
		preview      TEXT NOT NULL
	);
	`
	_, err := dc.db.Exec(schema)
	return err
}

// Load returns every cached entry, for serving reads before the first full
// rebuild completes.
func (dc *DiskCache) Load() ([]Entry, error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	rows, err := dc.db.Query(`SELECT rel_path, types, tags, display_name, title, id, preview FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("query index cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var typesCSV, tagsCSV string
		if err := rows.Scan(&e.RelPath, &typesCSV, &tagsCSV, &e.DisplayName, &e.Title, &e.ID, &e.Preview); err != nil {
			return nil, fmt.Errorf("scan index cache row: %w", err)
		}
		e.Types = splitCSV(typesCSV)
		e.Tags = splitCSV(tagsCSV)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Replace atomically overwrites the cache with entries, used once a real
// rebuild finishes scanning disk.
func (dc *DiskCache) Replace(entries []Entry) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	tx, err := dc.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index cache tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear index cache: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries (rel_path, types, tags, display_name, title, id, preview) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare index cache insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.RelPath, joinCSV(e.Types), joinCSV(e.Tags), e.DisplayName, e.Title, e.ID, e.Preview); err != nil {
			return fmt.Errorf("insert index cache entry %s: %w", e.RelPath, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database handle.
func (dc *DiskCache) Close() error {
	return dc.db.Close()
}

// joinCSV/splitCSV use JSON arrays rather than a literal comma join so tag
// or type names containing commas round-trip exactly.
func joinCSV(values []string) string {
	b, _ := json.Marshal(values)
	return string(b)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		// Tolerate a cache file written before this format; fall back to a
		// bare comma split rather than discarding the row entirely.
		for _, part := range strings.Split(raw, ",") {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
