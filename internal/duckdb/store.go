// Package duckdb caches indel scan results in DuckDB, keyed by the
// fingerprint of the scanned alignment file.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching scan results.
type Store struct {
	db *sql.DB
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS scan_runs (
		source_path VARCHAR,
		source_size BIGINT,
		source_modtime VARCHAR,
		reference_id VARCHAR,
		min_count BIGINT,
		comment_prefixes VARCHAR,
		keep_empty BOOLEAN,
		event_count BIGINT,
		created_at VARCHAR,
		PRIMARY KEY (source_path, source_size, source_modtime, reference_id, min_count,
			comment_prefixes, keep_empty)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS indel_events (
		source_path VARCHAR,
		source_size BIGINT,
		source_modtime VARCHAR,
		reference_id VARCHAR,
		min_count BIGINT,
		comment_prefixes VARCHAR,
		keep_empty BOOLEAN,
		seq BIGINT,
		kind VARCHAR,
		ref_pos BIGINT,
		num_seqs BIGINT,
		total_seqs BIGINT,
		col_index BIGINT,
		run_length BIGINT
	)`)
	return err
}
