// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads a dataset file into the term indexes, the grid-file
// store and the record store. Datasets are YAML (or JSON, by extension) and
// accept a grid reference either as a single string or as a list.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/pkg/types"
)

// Dataset is the on-disk representation of a linkage dataset.
type Dataset struct {
	Taxa       []types.TaxonEntry    `json:"taxa" yaml:"taxa"`
	Localities []types.LocalityEntry `json:"localities" yaml:"localities"`

	// Grids maps a grid-file reference to its record identifiers.
	Grids map[string][]string `json:"grids" yaml:"grids"`

	Records []types.Record `json:"records" yaml:"records"`
}

// Summary reports what a Load wrote.
type Summary struct {
	Taxa       int                  `json:"taxa" yaml:"taxa"`
	Localities int                  `json:"localities" yaml:"localities"`
	Grids      int                  `json:"grids" yaml:"grids"`
	Records    map[types.Source]int `json:"records" yaml:"records"`

	// DanglingRefs lists grid references used by index entries but not
	// defined in the dataset. They may already exist in the grid store.
	DanglingRefs []string `json:"dangling_refs,omitempty" yaml:"dangling_refs,omitempty"`
}

// IndexWriter stores index entries.
type IndexWriter interface {
	PutTaxon(ctx context.Context, e types.TaxonEntry) error
	PutLocality(ctx context.Context, e types.LocalityEntry) error
}

// GridWriter stores grid files.
type GridWriter interface {
	Put(ctx context.Context, ref string, ids []string) error
}

// RecordWriter stores primary records.
type RecordWriter interface {
	Put(ctx context.Context, r types.Record) error
}

// Loader writes datasets into the stores.
type Loader struct {
	index   IndexWriter
	grids   GridWriter
	records RecordWriter
}

// NewLoader returns a loader writing to the given stores.
func NewLoader(idx IndexWriter, grids GridWriter, recs RecordWriter) *Loader {
	return &Loader{index: idx, grids: grids, records: recs}
}

// ReadFile reads a dataset. Files ending in .json are decoded as JSON,
// everything else as YAML.
func ReadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(f)
	}
	return Decode(f)
}

// Decode reads a YAML dataset.
func Decode(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil && err != io.EOF {
		return Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}
	return ds, nil
}

// DecodeJSON reads a JSON dataset.
func DecodeJSON(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil && err != io.EOF {
		return Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}
	return ds, nil
}

// Load writes every part of ds. Writes are upserts, so loading the same
// dataset twice leaves the stores unchanged.
func (l *Loader) Load(ctx context.Context, ds Dataset) (Summary, error) {
	log := logging.FromContext(ctx)
	sum := Summary{Records: map[types.Source]int{}}

	refs := make([]string, 0, len(ds.Grids))
	for ref := range ds.Grids {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if err := l.grids.Put(ctx, ref, ds.Grids[ref]); err != nil {
			return sum, fmt.Errorf("grid %s: %w", ref, err)
		}
		sum.Grids++
	}

	used := map[string]struct{}{}
	for _, e := range ds.Taxa {
		if err := l.index.PutTaxon(ctx, e); err != nil {
			return sum, fmt.Errorf("taxon %s: %w", e.ID, err)
		}
		collectRefs(used, e.GridSet)
		sum.Taxa++
	}
	for _, e := range ds.Localities {
		if err := l.index.PutLocality(ctx, e); err != nil {
			return sum, fmt.Errorf("locality %s: %w", e.ID, err)
		}
		collectRefs(used, e.GridSet)
		sum.Localities++
	}

	for _, r := range ds.Records {
		if _, ok := sourceSet[r.Source]; !ok {
			return sum, fmt.Errorf("record %s: unknown source %q", r.ID, r.Source)
		}
		if err := l.records.Put(ctx, r); err != nil {
			return sum, fmt.Errorf("record %s/%s: %w", r.Source, r.ID, err)
		}
		sum.Records[r.Source]++
	}

	for ref := range used {
		if _, ok := ds.Grids[ref]; !ok {
			sum.DanglingRefs = append(sum.DanglingRefs, ref)
		}
	}
	sort.Strings(sum.DanglingRefs)
	if len(sum.DanglingRefs) > 0 {
		log.Warn().Strs("refs", sum.DanglingRefs).Msg("index entries reference grid files not in dataset")
	}

	log.Info().
		Int("taxa", sum.Taxa).
		Int("localities", sum.Localities).
		Int("grids", sum.Grids).
		Int("records", len(ds.Records)).
		Msg("dataset loaded")
	return sum, nil
}

var sourceSet = func() map[types.Source]struct{} {
	m := make(map[types.Source]struct{}, len(types.Sources))
	for _, s := range types.Sources {
		m[s] = struct{}{}
	}
	return m
}()

func collectRefs(into map[string]struct{}, g types.GridSet) {
	for _, src := range types.Sources {
		for _, ref := range g.For(src) {
			into[ref] = struct{}{}
		}
	}
}
