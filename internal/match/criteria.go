// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"encoding/json"

	"github.com/pdiddy/epandda/pkg/types"
)

// Term keys for locality fields.
const (
	KeyScientificNames    = "scientificNames"
	KeyCountryNames       = "countryNames"
	KeyStateProvinceNames = "stateProvinceNames"
	KeyCountyNames        = "countyNames"
	KeyLocalityNames      = "localityNames"
	KeyOriginalStates     = "originalStates"
	KeyOriginalCountries  = "originalCountries"
	KeyOriginalCounties   = "originalCounties"
	KeyOriginalLocalities = "originalLocalities"
)

// localityKeys are always present in serialized criteria, even when empty.
var localityKeys = []string{
	KeyStateProvinceNames,
	KeyCountryNames,
	KeyCountyNames,
	KeyLocalityNames,
	KeyOriginalStates,
	KeyOriginalCountries,
	KeyOriginalCounties,
	KeyOriginalLocalities,
}

// Criteria records which terms contributed to a match: scientific names,
// taxonomic ranks and locality fields. It is built fresh for each query and
// threaded through the pipeline by value; every Add method returns the
// updated criteria.
type Criteria struct {
	ScientificNames Set
	Terms           map[string]Set
}

// NewCriteria returns empty criteria.
func NewCriteria() Criteria {
	return Criteria{ScientificNames: Set{}, Terms: map[string]Set{}}
}

// Clone returns criteria sharing no sets with c.
func (c Criteria) Clone() Criteria {
	out := Criteria{
		ScientificNames: c.ScientificNames.Clone(),
		Terms:           make(map[string]Set, len(c.Terms)),
	}
	for k, set := range c.Terms {
		out.Terms[k] = set.Clone()
	}
	return out
}

// add inserts the non-empty values under key in place. A key with no
// non-empty value gets no set. Callers own c.
func (c Criteria) add(key string, values ...string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		set, ok := c.Terms[key]
		if !ok {
			set = Set{}
			c.Terms[key] = set
		}
		set.Add(v)
	}
}

// AddTaxon returns c with a taxonomy entry's scientific names and rank
// terms merged in. c itself is left unchanged.
func (c Criteria) AddTaxon(e types.TaxonEntry) Criteria {
	out := c.Clone()
	for _, n := range e.ScientificNames {
		if n != "" {
			out.ScientificNames.Add(n)
		}
	}
	for rank, terms := range e.Taxonomy {
		out.add(rank, terms...)
	}
	return out
}

// AddLocality returns c with a locality entry's fields merged in. Absent
// fields are skipped and c itself is left unchanged.
func (c Criteria) AddLocality(e types.LocalityEntry) Criteria {
	out := c.Clone()
	out.add(KeyCountryNames, e.CountryName)
	out.add(KeyStateProvinceNames, e.StateProvinceName)
	out.add(KeyCountyNames, e.County)
	out.add(KeyLocalityNames, e.Locality)
	out.add(KeyOriginalStates, e.OriginalStateProvinceNames...)
	out.add(KeyOriginalCountries, e.OriginalCountryNames...)
	out.add(KeyOriginalCounties, e.OriginalCounties...)
	out.add(KeyOriginalLocalities, e.OriginalLocalities...)
	return out
}

// Lists returns every term set as a sorted list, keyed by term name.
func (c Criteria) Lists() map[string][]string {
	out := map[string][]string{KeyScientificNames: c.ScientificNames.Sorted()}
	for _, k := range localityKeys {
		out[k] = []string{}
	}
	for k, set := range c.Terms {
		out[k] = set.Sorted()
	}
	return out
}

// MarshalJSON encodes the criteria as sorted lists.
func (c Criteria) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lists())
}

// UnmarshalJSON decodes criteria from their sorted-list form.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var lists map[string][]string
	if err := json.Unmarshal(data, &lists); err != nil {
		return err
	}
	out := NewCriteria()
	for k, values := range lists {
		if k == KeyScientificNames {
			out.ScientificNames.Add(values...)
			continue
		}
		out.add(k, values...)
	}
	*c = out
	return nil
}
