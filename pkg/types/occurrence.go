// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the ePANDDA linkage service:
// index entries, primary-store records, resolved references and configuration.
package types

import (
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Source identifies one of the two linked data providers.
type Source string

const (
	// SourceIDigBio is the specimen-occurrence aggregator.
	SourceIDigBio Source = "idigbio"

	// SourcePBDB is the Paleobiology Database.
	SourcePBDB Source = "pbdb"
)

// Sources lists every linked provider in response order.
var Sources = []Source{SourceIDigBio, SourcePBDB}

// GridRefs is a normalized list of grid-file references. Index documents
// store either a single reference or a list; both decode to a GridRefs.
type GridRefs []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (g *GridRefs) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*g = normalizeRefs([]string{single})
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("grid reference must be a string or list of strings: %w", err)
	}
	*g = normalizeRefs(list)
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence node.
func (g *GridRefs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*g = nil
			return nil
		}
		*g = normalizeRefs([]string{node.Value})
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("decoding grid reference list: %w", err)
		}
		*g = normalizeRefs(list)
		return nil
	default:
		return fmt.Errorf("grid reference must be a scalar or sequence (line %d)", node.Line)
	}
}

// normalizeRefs drops empty references.
func normalizeRefs(refs []string) GridRefs {
	out := make(GridRefs, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GridSet holds the grid-file references of an index entry, one list per source.
type GridSet struct {
	IDigBio GridRefs `json:"idbGridFile,omitempty" yaml:"idbGridFile,omitempty"`
	PBDB    GridRefs `json:"pbdbGridFile,omitempty" yaml:"pbdbGridFile,omitempty"`
}

// For returns the references for the given source.
func (g GridSet) For(src Source) GridRefs {
	switch src {
	case SourceIDigBio:
		return g.IDigBio
	case SourcePBDB:
		return g.PBDB
	}
	return nil
}

// TaxonEntry is a document of the taxonomy term index.
type TaxonEntry struct {
	// ID uniquely identifies the entry inside the index.
	ID string `json:"id" yaml:"id"`

	// ScientificNames lists every name variant the entry is known by.
	ScientificNames []string `json:"scientificNames" yaml:"scientificNames"`

	// Taxonomy maps a rank (kingdom, phylum, ..., species) to its terms.
	Taxonomy map[string][]string `json:"taxonomy" yaml:"taxonomy"`

	GridSet `yaml:",inline"`
}

// LocalityEntry is a document of the locality term index. Every field is
// optional.
type LocalityEntry struct {
	ID string `json:"id" yaml:"id"`

	CountryName       string `json:"countryName,omitempty" yaml:"countryName,omitempty"`
	StateProvinceName string `json:"stateProvinceName,omitempty" yaml:"stateProvinceName,omitempty"`
	County            string `json:"county,omitempty" yaml:"county,omitempty"`
	Locality          string `json:"locality,omitempty" yaml:"locality,omitempty"`

	// Original* hold the source-native spellings before normalization.
	OriginalStateProvinceNames []string `json:"originalStateProvinceName,omitempty" yaml:"originalStateProvinceName,omitempty"`
	OriginalCountryNames       []string `json:"originalCountryName,omitempty" yaml:"originalCountryName,omitempty"`
	OriginalCounties           []string `json:"original_county,omitempty" yaml:"original_county,omitempty"`
	OriginalLocalities         []string `json:"original_locality,omitempty" yaml:"original_locality,omitempty"`

	GridSet `yaml:",inline"`
}

// Record is a full document from a source's primary store.
type Record struct {
	Source Source         `json:"source" yaml:"source"`
	ID     string         `json:"id" yaml:"id"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// ResolvedRecord is the externally facing form of a matched record.
type ResolvedRecord struct {
	Source Source `json:"source"`
	ID     string `json:"id"`

	// UUID is set for aggregator records only.
	UUID string `json:"uuid,omitempty"`

	// URL is a human-navigable link to the record at its provider.
	URL string `json:"url"`

	// Fields holds the projected subset of the record's fields.
	Fields map[string]any `json:"fields,omitempty"`
}
