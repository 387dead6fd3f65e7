// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the taxonomy and locality term indexes and answers
// exact-phrase full-text lookups against them.
//
// Each index is a SQLite table holding the JSON entry documents and a terms
// table with one row per searchable term, mirrored into an FTS5 virtual
// table by triggers. A phrase therefore matches within a single term only.
package index

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
	dbFile   = "terms.db"
)

// table describes one term index.
type table struct {
	name  string
	terms string
	fts   string
}

var (
	taxonTable    = table{name: "taxon_entries", terms: "taxon_terms", fts: "taxon_fts"}
	localityTable = table{name: "locality_entries", terms: "locality_terms", fts: "locality_fts"}
)

// Store manages the term index database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the index database at dataDir/index/terms.db and
// creates the schema if it does not exist.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	return Open(filepath.Join(dir, dbFile) + "?_journal_mode=WAL")
}

// Open opens an index database from a go-sqlite3 DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	for _, t := range []table{taxonTable, localityTable} {
		if _, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			doc TEXT NOT NULL
		)`, t.name)); err != nil {
			return fmt.Errorf("creating %s: %w", t.name, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_rowid INTEGER NOT NULL REFERENCES %[2]s(rowid),
			term TEXT NOT NULL
		)`, t.terms, t.name)); err != nil {
			return fmt.Errorf("creating %s: %w", t.terms, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %[1]s_entry ON %[1]s(entry_rowid)`, t.terms)); err != nil {
			return fmt.Errorf("indexing %s: %w", t.terms, err)
		}

		var exists int
		if err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, t.fts,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking FTS table %s: %w", t.fts, err)
		}
		if exists > 0 {
			continue
		}

		stmts := []string{
			fmt.Sprintf(`CREATE VIRTUAL TABLE %[2]s USING fts5(term, content=%[1]s, content_rowid=rowid)`, t.terms, t.fts),
			fmt.Sprintf(`CREATE TRIGGER %[1]s_ai AFTER INSERT ON %[1]s BEGIN
				INSERT INTO %[2]s(rowid, term) VALUES (new.rowid, new.term);
			END`, t.terms, t.fts),
			fmt.Sprintf(`CREATE TRIGGER %[1]s_ad AFTER DELETE ON %[1]s BEGIN
				INSERT INTO %[2]s(%[2]s, rowid, term) VALUES('delete', old.rowid, old.term);
			END`, t.terms, t.fts),
			fmt.Sprintf(`CREATE TRIGGER %[1]s_au AFTER UPDATE ON %[1]s BEGIN
				INSERT INTO %[2]s(%[2]s, rowid, term) VALUES('delete', old.rowid, old.term);
				INSERT INTO %[2]s(rowid, term) VALUES (new.rowid, new.term);
			END`, t.terms, t.fts),
		}
		for _, stmt := range stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure for %s: %w", t.name, err)
			}
		}
	}
	return nil
}

// PutTaxon inserts or replaces a taxonomy entry.
func (s *Store) PutTaxon(ctx context.Context, e types.TaxonEntry) error {
	if e.ID == "" {
		return fmt.Errorf("taxon entry has no id")
	}
	terms := append([]string{}, e.ScientificNames...)
	for _, rank := range sortedKeys(e.Taxonomy) {
		terms = append(terms, e.Taxonomy[rank]...)
	}
	return s.put(ctx, taxonTable, e.ID, e, terms)
}

// PutLocality inserts or replaces a locality entry.
func (s *Store) PutLocality(ctx context.Context, e types.LocalityEntry) error {
	if e.ID == "" {
		return fmt.Errorf("locality entry has no id")
	}
	terms := []string{e.CountryName, e.StateProvinceName, e.County, e.Locality}
	terms = append(terms, e.OriginalCountryNames...)
	terms = append(terms, e.OriginalStateProvinceNames...)
	terms = append(terms, e.OriginalCounties...)
	terms = append(terms, e.OriginalLocalities...)
	return s.put(ctx, localityTable, e.ID, e, terms)
}

// put upserts the entry document and replaces its terms, one row per term.
func (s *Store) put(ctx context.Context, t table, id string, doc any, terms []string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", t.name, id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var rowid int64
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc=excluded.doc
		 RETURNING rowid`, t.name),
		id, string(data),
	).Scan(&rowid); err != nil {
		return fmt.Errorf("upserting %s %s: %w", t.name, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE entry_rowid = ?`, t.terms), rowid); err != nil {
		return fmt.Errorf("clearing terms of %s %s: %w", t.name, id, err)
	}

	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (entry_rowid, term) VALUES (?, ?)`, t.terms), rowid, term); err != nil {
			return fmt.Errorf("indexing term of %s %s: %w", t.name, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s %s: %w", t.name, id, err)
	}
	return nil
}

// Count returns the number of taxonomy and locality entries.
func (s *Store) Count(ctx context.Context) (taxa, localities int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+taxonTable.name).Scan(&taxa); err != nil {
		return 0, 0, fmt.Errorf("counting taxa: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+localityTable.name).Scan(&localities); err != nil {
		return 0, 0, fmt.Errorf("counting localities: %w", err)
	}
	return taxa, localities, nil
}
