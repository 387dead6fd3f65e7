// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/epandda/internal/gridfs"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
	"github.com/pdiddy/epandda/pkg/types"
)

// Warning reports a degraded, non-fatal step of a query.
type Warning struct {
	Source  types.Source `json:"source,omitempty"`
	Ref     string       `json:"ref,omitempty"`
	Message string       `json:"message"`
}

// Candidates holds one candidate identifier set per source.
type Candidates map[types.Source]Set

// NewCandidates returns empty sets for every source.
func NewCandidates() Candidates {
	c := make(Candidates, len(types.Sources))
	for _, src := range types.Sources {
		c[src] = Set{}
	}
	return c
}

// GridResolver dereferences grid files into candidate identifiers.
type GridResolver struct {
	reader gridfs.Reader
	strict bool
}

// NewGridResolver returns a resolver reading from r. In strict mode an
// unreadable grid file fails the resolution; otherwise it becomes a Warning.
func NewGridResolver(r gridfs.Reader, strict bool) *GridResolver {
	return &GridResolver{reader: r, strict: strict}
}

// Resolve adds the identifiers of every grid file in refs to into. It
// returns the warnings for grid files that were skipped.
func (g *GridResolver) Resolve(ctx context.Context, src types.Source, refs types.GridRefs, into Set) ([]Warning, error) {
	var warnings []Warning
	for _, ref := range refs {
		ids, err := g.reader.Get(ctx, ref)
		if err != nil {
			var gfe *apperrors.GridFileError
			if g.strict || !errors.As(err, &gfe) {
				return warnings, fmt.Errorf("resolving %s grid file: %w", src, err)
			}
			warnings = append(warnings, Warning{Source: src, Ref: ref, Message: err.Error()})
			continue
		}
		into.Add(ids...)
	}
	return warnings, nil
}

// ResolveEntry resolves every source's grid files of one index entry into
// the matching set of into.
func (g *GridResolver) ResolveEntry(ctx context.Context, grids types.GridSet, into Candidates) ([]Warning, error) {
	var warnings []Warning
	for _, src := range types.Sources {
		set, ok := into[src]
		if !ok {
			set = Set{}
			into[src] = set
		}
		w, err := g.Resolve(ctx, src, grids.For(src), set)
		warnings = append(warnings, w...)
		if err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}
