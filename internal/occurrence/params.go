// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package occurrence

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/epandda/internal/sources"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
	"github.com/pdiddy/epandda/pkg/types"
)

// Request parameter names.
const (
	ParamTaxonName       = "taxon_name"
	ParamScientificName  = "scientific_name"
	ParamLocality        = "locality"
	ParamPeriod          = "period"
	ParamInstitutionCode = "institution_code"
	ParamOffset          = "offset"
	ParamLimit           = "limit"
)

const msgTermRequired = "No value for required parameter taxon_name (or locality)"

// Params is a validated occurrence query.
type Params struct {
	TaxonName       string
	Locality        string
	Period          string
	InstitutionCode string

	Offset int
	Limit  int

	// Fields holds the requested projection per source. A source without an
	// entry gets its full field list.
	Fields map[types.Source][]string
}

// ParamSpec describes one accepted request parameter.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description"`
}

// Description documents the occurrence endpoint.
type Description struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Describe returns the endpoint description served for parameterless requests.
func Describe() Description {
	params := []ParamSpec{
		{ParamTaxonName, "text", false, "The taxon to search occurrences for (alias: scientific_name). Required unless locality is given"},
		{ParamLocality, "text", false, "The locality name to bound taxonomic occurrences to"},
		{ParamPeriod, "text", false, "The geologic time period to filter occurrences by"},
		{ParamInstitutionCode, "text", false, "The institution code that houses the specimen"},
		{ParamOffset, "integer", false, "Row offset of the returned page (default 0)"},
		{ParamLimit, "integer", false, fmt.Sprintf("Maximum rows in the returned page (default %d)", DefaultLimit)},
	}
	for _, src := range types.Sources {
		decl := sources.MustLookup(src)
		for _, p := range decl.FieldParams {
			params = append(params, ParamSpec{p, "text", false, fmt.Sprintf("Comma, semicolon or space separated %s fields to return", src)})
		}
	}
	return Description{
		Name:        "Occurrence index",
		Description: "Returns specimen and paleobiology occurrences linked by taxon and locality",
		Params:      params,
	}
}

// knownParams lists every name ParseParams reads.
func knownParams() []string {
	names := []string{ParamTaxonName, ParamScientificName, ParamLocality, ParamPeriod, ParamInstitutionCode, ParamOffset, ParamLimit}
	for _, src := range types.Sources {
		names = append(names, sources.MustLookup(src).FieldParams...)
	}
	return names
}

// HasParams reports whether v carries any recognized non-empty parameter.
func HasParams(v url.Values) bool {
	for _, name := range knownParams() {
		if strings.TrimSpace(v.Get(name)) != "" {
			return true
		}
	}
	return false
}

// ParseParams reads and validates an occurrence query. defaultLimit applies
// when no limit is given. Problems are reported together in a
// *errors.ValidationError keyed by parameter name.
func ParseParams(v url.Values, defaultLimit int) (Params, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	verr := &apperrors.ValidationError{}

	p := Params{
		TaxonName:       strings.TrimSpace(v.Get(ParamTaxonName)),
		Locality:        strings.TrimSpace(v.Get(ParamLocality)),
		Period:          strings.TrimSpace(v.Get(ParamPeriod)),
		InstitutionCode: strings.TrimSpace(v.Get(ParamInstitutionCode)),
		Limit:           defaultLimit,
	}
	if p.TaxonName == "" {
		p.TaxonName = strings.TrimSpace(v.Get(ParamScientificName))
	}

	if raw := strings.TrimSpace(v.Get(ParamOffset)); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			verr.Add(ParamOffset, "offset must be an integer")
		case n < 0:
			verr.Add(ParamOffset, "offset must not be negative")
		default:
			p.Offset = n
		}
	}
	if raw := strings.TrimSpace(v.Get(ParamLimit)); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			verr.Add(ParamLimit, "limit must be an integer")
		case n <= 0:
			verr.Add(ParamLimit, "limit must be positive")
		default:
			p.Limit = n
		}
	}

	for _, src := range types.Sources {
		decl := sources.MustLookup(src)
		for _, name := range decl.FieldParams {
			if raw := v.Get(name); raw != "" {
				if p.Fields == nil {
					p.Fields = make(map[types.Source][]string)
				}
				p.Fields[src] = append(p.Fields[src], sources.ParseFields(raw)...)
			}
		}
	}

	if p.TaxonName == "" && p.Locality == "" {
		verr.Add(ParamTaxonName, msgTermRequired)
	}
	if !verr.Empty() {
		return Params{}, verr
	}
	return p, nil
}

// Validate checks the query carries a taxon or locality term.
func (p Params) Validate() error {
	if p.TaxonName == "" && p.Locality == "" {
		return apperrors.NewValidationError(ParamTaxonName, msgTermRequired)
	}
	if p.Offset < 0 {
		return apperrors.NewValidationError(ParamOffset, "offset must not be negative")
	}
	return nil
}

// Echo returns the non-empty parameters as they are reported back in the
// response criteria.
func (p Params) Echo() map[string]any {
	out := map[string]any{
		ParamOffset: p.Offset,
		ParamLimit:  p.Limit,
	}
	for k, v := range map[string]string{
		ParamTaxonName:       p.TaxonName,
		ParamLocality:        p.Locality,
		ParamPeriod:          p.Period,
		ParamInstitutionCode: p.InstitutionCode,
	} {
		if v != "" {
			out[k] = v
		}
	}
	for src, fields := range p.Fields {
		name := sources.MustLookup(src).FieldParams[0]
		out[name] = strings.Join(fields, ",")
	}
	return out
}

// ValuesFromJSON converts a decoded JSON object into request values. Lists
// are joined with commas; null members are skipped.
func ValuesFromJSON(obj map[string]any) url.Values {
	v := url.Values{}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := obj[k].(type) {
		case nil:
		case string:
			v.Set(k, val)
		case float64:
			v.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		case []any:
			parts := make([]string, 0, len(val))
			for _, it := range val {
				if it != nil {
					parts = append(parts, fmt.Sprint(it))
				}
			}
			v.Set(k, strings.Join(parts, ","))
		default:
			v.Set(k, fmt.Sprint(val))
		}
	}
	return v
}
