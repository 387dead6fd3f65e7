// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match resolves a taxon/locality query into the record identifiers
// of each source that satisfy both dimensions.
//
// The pipeline is: phrase lookup in the taxonomy and locality indexes,
// accumulation of the matched terms into Criteria, dereferencing of each
// entry's grid files into per-source candidate sets, and a per-source
// intersection of the taxonomy and locality candidates. A dimension with no
// query term does not constrain the result.
package match

import (
	"context"
	"fmt"

	"github.com/pdiddy/epandda/internal/index"
	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/pkg/types"
)

// Index is the term-index lookup the engine consumes.
type Index interface {
	SearchTaxonomy(ctx context.Context, text string) (*index.Cursor[types.TaxonEntry], error)
	SearchLocality(ctx context.Context, text string) (*index.Cursor[types.LocalityEntry], error)
}

// Query holds the free-text terms of a match request. At least one must be set.
type Query struct {
	TaxonName string
	Locality  string
}

// IsEmpty reports whether the query has no terms.
func (q Query) IsEmpty() bool {
	return q.TaxonName == "" && q.Locality == ""
}

// Result is the outcome of Engine.Match.
type Result struct {
	// Matched holds the final identifier set per source.
	Matched map[types.Source]Set

	// Taxon and Locality hold each dimension's constraint per source.
	Taxon    map[types.Source]Dimension
	Locality map[types.Source]Dimension

	Criteria Criteria
	Warnings []Warning
}

// Engine runs the match pipeline. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	index Index
	grids *GridResolver
}

// NewEngine returns an engine over idx and grids.
func NewEngine(idx Index, grids *GridResolver) *Engine {
	return &Engine{index: idx, grids: grids}
}

// Match runs the full pipeline for q.
func (e *Engine) Match(ctx context.Context, q Query) (Result, error) {
	if q.IsEmpty() {
		return Result{}, fmt.Errorf("query has no taxon or locality term")
	}
	log := logging.FromContext(ctx)

	res := Result{
		Matched:  make(map[types.Source]Set, len(types.Sources)),
		Taxon:    make(map[types.Source]Dimension, len(types.Sources)),
		Locality: make(map[types.Source]Dimension, len(types.Sources)),
		Criteria: NewCriteria(),
	}
	for _, src := range types.Sources {
		res.Taxon[src] = Unconstrained()
		res.Locality[src] = Unconstrained()
	}

	if q.TaxonName != "" {
		cands, crit, warnings, err := e.scanTaxa(ctx, q.TaxonName, res.Criteria)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			return Result{}, err
		}
		res.Criteria = crit
		for _, src := range types.Sources {
			res.Taxon[src] = Constrained(cands[src])
		}
	}

	if q.Locality != "" {
		cands, crit, warnings, err := e.scanLocalities(ctx, q.Locality, res.Criteria)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			return Result{}, err
		}
		res.Criteria = crit
		for _, src := range types.Sources {
			res.Locality[src] = Constrained(cands[src])
		}
	}

	for _, src := range types.Sources {
		combined := Combine(res.Taxon[src], res.Locality[src])
		res.Matched[src] = combined.IDs()
		log.Debug().
			Str("source", string(src)).
			Stringer("taxon", res.Taxon[src].State()).
			Stringer("locality", res.Locality[src].State()).
			Int("matched", len(res.Matched[src])).
			Msg("intersected candidates")
	}

	return res, nil
}

func (e *Engine) scanTaxa(ctx context.Context, text string, crit Criteria) (Candidates, Criteria, []Warning, error) {
	cur, err := e.index.SearchTaxonomy(ctx, text)
	if err != nil {
		return nil, crit, nil, fmt.Errorf("searching taxonomy index: %w", err)
	}
	defer cur.Close()

	cands := NewCandidates()
	var warnings []Warning
	n := 0
	for cur.Next() {
		entry := cur.Entry()
		crit = crit.AddTaxon(entry)
		w, err := e.grids.ResolveEntry(ctx, entry.GridSet, cands)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, crit, warnings, fmt.Errorf("taxon entry %s: %w", entry.ID, err)
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return nil, crit, warnings, fmt.Errorf("scanning taxonomy index: %w", err)
	}

	logging.FromContext(ctx).Debug().Str("taxon_name", text).Int("entries", n).Msg("taxonomy lookup")
	return cands, crit, warnings, nil
}

func (e *Engine) scanLocalities(ctx context.Context, text string, crit Criteria) (Candidates, Criteria, []Warning, error) {
	cur, err := e.index.SearchLocality(ctx, text)
	if err != nil {
		return nil, crit, nil, fmt.Errorf("searching locality index: %w", err)
	}
	defer cur.Close()

	cands := NewCandidates()
	var warnings []Warning
	n := 0
	for cur.Next() {
		entry := cur.Entry()
		crit = crit.AddLocality(entry)
		w, err := e.grids.ResolveEntry(ctx, entry.GridSet, cands)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, crit, warnings, fmt.Errorf("locality entry %s: %w", entry.ID, err)
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return nil, crit, warnings, fmt.Errorf("scanning locality index: %w", err)
	}

	logging.FromContext(ctx).Debug().Str("locality", text).Int("entries", n).Msg("locality lookup")
	return cands, crit, warnings, nil
}
