// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns matched identifiers into externally facing records:
// it fetches each source's primary records, builds their public URLs and
// copies the caller's projected fields.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/internal/match"
	"github.com/pdiddy/epandda/internal/records"
	"github.com/pdiddy/epandda/internal/sources"
	"github.com/pdiddy/epandda/pkg/types"
)

// Filter narrows resolved records by attributes that are not indexed. The
// zero value matches everything.
type Filter struct {
	// Period matches the geologic period or interval fields, case-insensitively.
	Period string

	// InstitutionCode matches the holding institution code, case-insensitively.
	InstitutionCode string
}

// IsZero reports whether f filters nothing.
func (f Filter) IsZero() bool {
	return f.Period == "" && f.InstitutionCode == ""
}

// Fields consulted by Filter, per source.
var (
	periodFields = map[types.Source][]string{
		types.SourceIDigBio: {"dwc:earliestPeriodOrLowestSystem", "dwc:latestPeriodOrHighestSystem"},
		types.SourcePBDB:    {"early_interval", "late_interval"},
	}
	institutionFields = map[types.Source][]string{
		types.SourceIDigBio: {"dwc:institutionCode"},
	}
)

func (f Filter) matches(r types.Record) bool {
	if f.Period != "" && !anyFieldEquals(r, periodFields[r.Source], f.Period) {
		return false
	}
	if f.InstitutionCode != "" {
		fields, ok := institutionFields[r.Source]
		// Sources without an institution field are not constrained.
		if ok && !anyFieldEquals(r, fields, f.InstitutionCode) {
			return false
		}
	}
	return true
}

func anyFieldEquals(r types.Record, fields []string, want string) bool {
	for _, name := range fields {
		if v, ok := r.Fields[name]; ok && v != nil && strings.EqualFold(fmt.Sprint(v), want) {
			return true
		}
	}
	return false
}

// Resolver resolves matched identifiers against a record store.
type Resolver struct {
	fetcher records.Fetcher
}

// New returns a resolver reading from f.
func New(f records.Fetcher) *Resolver {
	return &Resolver{fetcher: f}
}

// Resolve fetches the records of every matched identifier and projects them.
// projections holds the requested field names per source; a source without
// a projection gets its full available field list. Requested fields a source
// does not declare are dropped. Identifiers absent from the store are
// omitted. Each source's output is ordered by identifier.
func (r *Resolver) Resolve(ctx context.Context, matched map[types.Source]match.Set, projections map[types.Source][]string, filter Filter) (map[types.Source][]types.ResolvedRecord, error) {
	log := logging.FromContext(ctx)
	out := make(map[types.Source][]types.ResolvedRecord, len(types.Sources))

	for _, src := range types.Sources {
		decl := sources.MustLookup(src)
		ids := matched[src].Sorted()
		out[src] = []types.ResolvedRecord{}
		if len(ids) == 0 {
			continue
		}

		recs, err := r.fetcher.FetchByIDs(ctx, src, ids)
		if err != nil {
			return nil, fmt.Errorf("fetching %s records: %w", src, err)
		}
		if missing := len(ids) - len(recs); missing > 0 {
			log.Debug().Str("source", string(src)).Int("missing", missing).Msg("omitting identifiers absent from store")
		}

		fields := decl.ClipFields(projections[src])
		resolved := make([]types.ResolvedRecord, 0, len(recs))
		for _, rec := range recs {
			if rec.Source == "" {
				rec.Source = src
			}
			if !filter.matches(rec) {
				continue
			}
			resolved = append(resolved, project(decl, rec, fields))
		}
		sort.Slice(resolved, func(i, j int) bool { return resolved[i].ID < resolved[j].ID })
		out[src] = resolved
	}

	return out, nil
}

// project builds the resolved form of rec, copying the fields that are both
// selected and present.
func project(decl sources.Source, rec types.Record, fields []string) types.ResolvedRecord {
	rr := types.ResolvedRecord{
		Source: decl.Name,
		ID:     rec.ID,
		URL:    decl.URL(rec),
	}
	if decl.Name == types.SourceIDigBio {
		if v, ok := rec.Fields[decl.IDField]; ok && v != nil {
			rr.UUID = fmt.Sprint(v)
		} else {
			rr.UUID = rec.ID
		}
	}
	for _, f := range fields {
		v, ok := rec.Fields[f]
		if !ok {
			continue
		}
		if rr.Fields == nil {
			rr.Fields = make(map[string]any, len(fields))
		}
		rr.Fields[f] = v
	}
	return rr
}

// Flatten concatenates resolved records in source order.
func Flatten(bySource map[types.Source][]types.ResolvedRecord) []types.ResolvedRecord {
	n := 0
	for _, recs := range bySource {
		n += len(recs)
	}
	out := make([]types.ResolvedRecord, 0, n)
	for _, src := range types.Sources {
		out = append(out, bySource[src]...)
	}
	return out
}
