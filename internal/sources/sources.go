// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources declares the two linked providers: which record fields
// each exposes, how a record's public URL is built, and how caller field
// projections are parsed and clipped.
package sources

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/epandda/pkg/types"
)

// Source describes one provider.
type Source struct {
	Name types.Source

	// FieldParams are the request parameter names carrying a projection
	// list for this source. The first is canonical.
	FieldParams []string

	// AvailableFields are the record fields callers may project.
	AvailableFields []string

	// IDField is the record field substituted into URLTemplate. The record
	// identifier is used when the field is absent.
	IDField string

	// URLTemplate is a fmt pattern with one %s verb.
	URLTemplate string
}

var registry = map[types.Source]Source{
	types.SourceIDigBio: {
		Name:        types.SourceIDigBio,
		FieldParams: []string{"idigbio_fields"},
		AvailableFields: []string{
			"idigbio:uuid",
			"dwc:scientificName",
			"dwc:genus",
			"dwc:specificEpithet",
			"dwc:family",
			"dwc:order",
			"dwc:class",
			"dwc:phylum",
			"dwc:kingdom",
			"dwc:country",
			"dwc:stateProvince",
			"dwc:county",
			"dwc:locality",
			"dwc:institutionCode",
			"dwc:collectionCode",
			"dwc:catalogNumber",
			"dwc:recordedBy",
			"dwc:earliestPeriodOrLowestSystem",
			"dwc:latestPeriodOrHighestSystem",
			"dwc:formation",
		},
		IDField:     "idigbio:uuid",
		URLTemplate: "https://www.idigbio.org/portal/records/%s",
	},
	types.SourcePBDB: {
		Name:        types.SourcePBDB,
		FieldParams: []string{"pbdb_fields", "paleobio_fields"},
		AvailableFields: []string{
			"occurrence_no",
			"collection_no",
			"reference_no",
			"accepted_name",
			"identified_name",
			"accepted_rank",
			"early_interval",
			"late_interval",
			"max_ma",
			"min_ma",
			"cc",
			"state",
			"county",
			"formation",
			"lat",
			"lng",
		},
		IDField:     "occurrence_no",
		URLTemplate: "https://paleobiodb.org/data1.2/occs/single.json?id=%s&show=full",
	},
}

// Lookup returns the declaration for src.
func Lookup(src types.Source) (Source, bool) {
	s, ok := registry[src]
	return s, ok
}

// MustLookup returns the declaration for src and panics for an unknown source.
func MustLookup(src types.Source) Source {
	s, ok := registry[src]
	if !ok {
		panic(fmt.Sprintf("sources: unknown source %q", src))
	}
	return s
}

// URL builds the public URL of record r.
func (s Source) URL(r types.Record) string {
	key := r.ID
	if v, ok := r.Fields[s.IDField]; ok && v != nil {
		if str := fmt.Sprint(v); str != "" {
			key = str
		}
	}
	return fmt.Sprintf(s.URLTemplate, key)
}

// Available reports whether field may be projected.
func (s Source) Available(field string) bool {
	for _, f := range s.AvailableFields {
		if f == field {
			return true
		}
	}
	return false
}

// ClipFields intersects requested with the available fields, keeping request
// order and dropping unknown names. An empty request selects every
// available field.
func (s Source) ClipFields(requested []string) []string {
	if len(requested) == 0 {
		return append([]string(nil), s.AvailableFields...)
	}
	out := make([]string, 0, len(requested))
	for _, f := range requested {
		if s.Available(f) && !contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// ParseFields splits a wire-form field list on commas, semicolons and
// whitespace. Duplicates are removed.
func ParseFields(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	var out []string
	for _, p := range parts {
		if !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
