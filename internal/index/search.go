// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/epandda/pkg/types"
)

// Cursor is a lazy, forward-only scan over matching index entries. It
// cannot be restarted; Close must be called when done.
type Cursor[T any] struct {
	rows  *sql.Rows
	entry T
	err   error
}

// Next advances to the next entry. It returns false when the scan is
// exhausted or failed; check Err afterwards.
func (c *Cursor[T]) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var doc string
	if err := c.rows.Scan(&doc); err != nil {
		c.err = fmt.Errorf("scanning index row: %w", err)
		return false
	}
	var entry T
	if err := json.Unmarshal([]byte(doc), &entry); err != nil {
		c.err = fmt.Errorf("decoding index entry: %w", err)
		return false
	}
	c.entry = entry
	return true
}

// Entry returns the current entry.
func (c *Cursor[T]) Entry() T {
	return c.entry
}

// Err returns the first error encountered during the scan.
func (c *Cursor[T]) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the underlying rows.
func (c *Cursor[T]) Close() error {
	return c.rows.Close()
}

// SearchTaxonomy returns the taxonomy entries whose terms contain text as
// an exact phrase.
func (s *Store) SearchTaxonomy(ctx context.Context, text string) (*Cursor[types.TaxonEntry], error) {
	rows, err := s.search(ctx, taxonTable, text)
	if err != nil {
		return nil, err
	}
	return &Cursor[types.TaxonEntry]{rows: rows}, nil
}

// SearchLocality returns the locality entries whose terms contain text as
// an exact phrase.
func (s *Store) SearchLocality(ctx context.Context, text string) (*Cursor[types.LocalityEntry], error) {
	rows, err := s.search(ctx, localityTable, text)
	if err != nil {
		return nil, err
	}
	return &Cursor[types.LocalityEntry]{rows: rows}, nil
}

func (s *Store) search(ctx context.Context, t table, text string) (*sql.Rows, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("search text is empty")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT e.doc FROM %[1]s e
		 WHERE e.rowid IN (
			SELECT t.entry_rowid FROM %[3]s
			JOIN %[2]s t ON t.rowid = %[3]s.rowid
			WHERE %[3]s MATCH ?
		 )
		 ORDER BY e.rowid`, t.name, t.terms, t.fts),
		PhraseQuery(text),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	return rows, nil
}

// PhraseQuery wraps text in double quotes so FTS5 matches it as a single
// phrase instead of a bag of words. Embedded quotes are doubled.
func PhraseQuery(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
