// Package store implements otell's embedded analytic database: schema
// bring-up, batch inserts from the write pipeline, the deterministic query
// surface (search, traces, trace, span, metrics, metricslist, status), and
// the retention sweep. Grounded on the pack's DuckDB storage example
// (database/sql + "github.com/marcboeker/go-duckdb", SetMaxOpenConns,
// CREATE TABLE IF NOT EXISTS via an embedded DDL string) combined with the
// teacher's prepared-statement batch-insert idiom from its ClickHouse
// writer.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/ollystack/otell/internal/selfobserve"
)

// Store wraps a DuckDB connection pool and the process-local lock that
// serializes retention sweeps against bulk inserts.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	tracer *selfobserve.Tracer

	// writeLock is held for reading (RLock) by every batch insert and for
	// writing (Lock) by the retention sweep, so a sweep never runs
	// concurrently with a bulk insert transaction.
	writeLock sync.RWMutex
}

// SetTracer attaches the process's self-observe tracer so retention sweeps
// emit spans. A nil tracer (the default) leaves sweeps untraced.
func (s *Store) SetTracer(t *selfobserve.Tracer) {
	s.tracer = t
}

// Open creates (if absent) and opens the DuckDB file at path, applies the
// schema DDL, and records the schema version in meta.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		schemaVersion,
	)
	if err != nil {
		return fmt.Errorf("store: write schema version: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the configured DB file path, for /v1/status.
func (s *Store) Path() string { return s.path }

// SizeBytes stats the DB file on disk; returns 0 for an in-memory DB
// (path == ":memory:").
func (s *Store) SizeBytes() int64 {
	if s.path == ":memory:" || s.path == "" {
		return 0
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
