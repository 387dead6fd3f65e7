// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gridfs stores grid files: immutable blobs, keyed by reference,
// whose content is a JSON array of record identifiers for one source.
package gridfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog"

	apperrors "github.com/pdiddy/epandda/pkg/errors"
)

const (
	gridDir   = "grids"
	keyPrefix = "grid/"
)

// Reader dereferences grid files.
type Reader interface {
	Get(ctx context.Context, ref string) ([]string, error)
}

// Store is a Badger-backed grid-file store.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	logger *zerolog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.logger.Error().Msgf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.logger.Warn().Msgf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.logger.Debug().Msgf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.logger.Trace().Msgf(msg, args...) }

// Open opens the grid store under dataDir/grids, or an in-memory store
// when inMemory is set.
func Open(dataDir string, inMemory bool, logger *zerolog.Logger) (*Store, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Join(dataDir, gridDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating grid directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening grid store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes the identifier list for ref, replacing any previous content.
func (s *Store) Put(ctx context.Context, ref string, ids []string) error {
	if ref == "" {
		return fmt.Errorf("grid reference is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding grid file %s: %w", ref, err)
	}
	return s.PutRaw(ctx, ref, data)
}

// PutRaw writes an already-serialized grid file.
func (s *Store) PutRaw(ctx context.Context, ref string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+ref), data)
	})
}

// Get returns the identifiers stored in grid file ref. A missing file yields
// a *errors.GridFileError wrapping errors.ErrGridFileNotFound.
func (s *Store) Get(ctx context.Context, ref string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &apperrors.GridFileError{Ref: ref, Err: apperrors.ErrGridFileNotFound}
	}
	if err != nil {
		return nil, &apperrors.GridFileError{Ref: ref, Err: err}
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, &apperrors.GridFileError{Ref: ref, Err: fmt.Errorf("decoding: %w", err)}
	}
	return ids, nil
}

// Count returns the number of stored grid files.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
