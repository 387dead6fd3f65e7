// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records persists the primary occurrence records of both linked
// providers and fetches them by identifier set.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/epandda/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "records.db"

	// fetchBatch keeps IN (...) lists under SQLite's bound-parameter limit.
	fetchBatch = 500
)

// Fetcher fetches records of one source by identifier.
type Fetcher interface {
	FetchByIDs(ctx context.Context, source types.Source, ids []string) ([]types.Record, error)
}

// Store manages the records database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates dataDir/index/records.db.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		source TEXT NOT NULL,
		id TEXT NOT NULL,
		doc TEXT NOT NULL,
		PRIMARY KEY (source, id)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a record.
func (s *Store) Put(ctx context.Context, r types.Record) error {
	if r.Source == "" || r.ID == "" {
		return fmt.Errorf("record needs a source and an id")
	}
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding record %s/%s: %w", r.Source, r.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (source, id, doc) VALUES (?, ?, ?)
		 ON CONFLICT(source, id) DO UPDATE SET doc=excluded.doc`,
		string(r.Source), r.ID, string(doc))
	if err != nil {
		return fmt.Errorf("upserting record %s/%s: %w", r.Source, r.ID, err)
	}
	return nil
}

// FetchByIDs returns the records of source whose identifiers are in ids.
// Identifiers with no stored record are omitted without error. Output is
// ordered by identifier.
func (s *Store) FetchByIDs(ctx context.Context, source types.Source, ids []string) ([]types.Record, error) {
	var out []types.Record
	for start := 0; start < len(ids); start += fetchBatch {
		end := min(start+fetchBatch, len(ids))
		batch, err := s.fetchBatch(ctx, source, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *Store) fetchBatch(ctx context.Context, source types.Source, ids []string) ([]types.Record, error) {
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(source))
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc FROM records WHERE source = ? AND id IN (`+placeholders+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s records: %w", source, err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(doc), &fields); err != nil {
			return nil, fmt.Errorf("decoding record %s/%s: %w", source, id, err)
		}
		out = append(out, types.Record{Source: source, ID: id, Fields: fields})
	}
	return out, rows.Err()
}

// Count returns the number of stored records per source.
func (s *Store) Count(ctx context.Context) (map[types.Source]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, count(*) FROM records GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Source]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.Source(src)] = n
	}
	return counts, rows.Err()
}
