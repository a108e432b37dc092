// Package cache provides a local SQLite-backed cache of prior analysis
// runs, keyed by file path and content hash, so that repeated `analyze`
// invocations over an unchanged script can short-circuit instead of
// re-running the core analyzer. The lineage core itself stays pure and
// stateless; this is a CLI-level convenience layered on top of it.
package cache

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a SQLite database recording one cached analysis result per
// file path.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path. Use
// ":memory:" for a throwaway, process-local cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entry is one cached analysis result.
type Entry struct {
	FilePath      string
	ContentHash   string
	AnalysisRunID string
	ReportJSON    string
	AnalyzedAt    time.Time
}

// Lookup returns the cached entry for filePath if one exists and its
// recorded content hash matches contentHash. A hash mismatch (the file
// changed since it was cached) is reported as a cache miss, not an error.
func (s *Store) Lookup(filePath, contentHash string) (*Entry, bool, error) {
	row := s.db.QueryRow(
		`SELECT file_path, content_hash, analysis_run_id, report_json, analyzed_at
		 FROM analysis_cache WHERE file_path = ?`,
		filePath,
	)

	var e Entry
	if err := row.Scan(&e.FilePath, &e.ContentHash, &e.AnalysisRunID, &e.ReportJSON, &e.AnalyzedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("looking up cache entry for %s: %w", filePath, err)
	}
	if e.ContentHash != contentHash {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put records or replaces the cached result for filePath.
func (s *Store) Put(filePath, contentHash, analysisRunID, reportJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO analysis_cache (file_path, content_hash, analysis_run_id, report_json, analyzed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   analysis_run_id = excluded.analysis_run_id,
		   report_json = excluded.report_json,
		   analyzed_at = excluded.analyzed_at`,
		filePath, contentHash, analysisRunID, reportJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry for %s: %w", filePath, err)
	}
	return nil
}

// Prune removes cached entries not analyzed since before.
func (s *Store) Prune(before time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM analysis_cache WHERE analyzed_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
