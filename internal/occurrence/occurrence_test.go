// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package occurrence

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/epandda/internal/index"
	"github.com/pdiddy/epandda/internal/match"
	"github.com/pdiddy/epandda/internal/records"
	"github.com/pdiddy/epandda/internal/resolve"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
	"github.com/pdiddy/epandda/pkg/types"
)

// --- test helpers ---

type gridMap map[string][]string

func (g gridMap) Get(ctx context.Context, ref string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, ok := g[ref]
	if !ok {
		return nil, &apperrors.GridFileError{Ref: ref, Err: apperrors.ErrGridFileNotFound}
	}
	return ids, nil
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// testService wires the real pipeline over temp-dir stores holding one
// taxon with two specimen records and one paleobiology record.
func testService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := index.NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	recs, err := records.NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { recs.Close() })

	require.NoError(t, idx.PutTaxon(ctx, types.TaxonEntry{
		ID:              "t-rex",
		ScientificNames: []string{"Tyrannosaurus rex"},
		Taxonomy:        map[string][]string{"genus": {"Tyrannosaurus"}},
		GridSet:         types.GridSet{IDigBio: types.GridRefs{"G1"}, PBDB: types.GridRefs{"G2"}},
	}))
	for _, r := range []types.Record{
		{Source: types.SourceIDigBio, ID: "id1", Fields: map[string]any{"idigbio:uuid": "u-1", "dwc:institutionCode": "MOR"}},
		{Source: types.SourceIDigBio, ID: "id2", Fields: map[string]any{"idigbio:uuid": "u-2", "dwc:institutionCode": "YPM"}},
		{Source: types.SourcePBDB, ID: "p1", Fields: map[string]any{"occurrence_no": "42", "accepted_name": "Tyrannosaurus rex"}},
	} {
		require.NoError(t, recs.Put(ctx, r))
	}

	engine := match.NewEngine(idx, match.NewGridResolver(gridMap{"G1": {"id1", "id2"}, "G2": {"p1"}}, true))
	return NewService(engine, resolve.New(recs), WithVersion("test"), WithClock(func() time.Time { return fixedNow }))
}

// --- pagination ---

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		offset, limit int
		want          []int
	}{
		{"all", 0, len(items), items},
		{"first page", 0, 2, []int{1, 2}},
		{"middle", 2, 2, []int{3, 4}},
		{"tail shorter than limit", 4, 10, []int{5}},
		{"offset at end", 5, 2, []int{}},
		{"offset past end", 9, 2, []int{}},
		{"default limit", 0, 0, items},
		{"negative offset", -3, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Paginate(items, tt.offset, tt.limit)
			assert.Equal(t, tt.want, w.Items)
			assert.Equal(t, len(items), w.Total)
		})
	}
}

func TestPaginateDefaults(t *testing.T) {
	items := make([]int, 250)
	w := Paginate(items, 0, 0)
	assert.Len(t, w.Items, DefaultLimit)
	assert.Equal(t, DefaultLimit, w.Limit)
	assert.Equal(t, 0, w.Offset)
	assert.Equal(t, 250, w.Total)
}

// --- params ---

func TestParseParams(t *testing.T) {
	v := url.Values{
		"scientific_name": {"Tyrannosaurus rex"},
		"locality":        {" Montana "},
		"offset":          {"5"},
		"limit":           {"10"},
		"idigbio_fields":  {"dwc:genus;dwc:county dwc:genus"},
		"paleobio_fields": {"cc"},
	}
	p, err := ParseParams(v, 0)
	require.NoError(t, err)

	assert.Equal(t, "Tyrannosaurus rex", p.TaxonName)
	assert.Equal(t, "Montana", p.Locality)
	assert.Equal(t, 5, p.Offset)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, []string{"dwc:genus", "dwc:county"}, p.Fields[types.SourceIDigBio])
	assert.Equal(t, []string{"cc"}, p.Fields[types.SourcePBDB])
}

func TestParseParamsDefaults(t *testing.T) {
	p, err := ParseParams(url.Values{"taxon_name": {"rex"}}, 25)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, 25, p.Limit)
	assert.Nil(t, p.Fields)
}

func TestParseParamsValidation(t *testing.T) {
	_, err := ParseParams(url.Values{"offset": {"x"}, "limit": {"-1"}}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, ParamTaxonName)
	assert.Contains(t, verr.Fields, ParamOffset)
	assert.Contains(t, verr.Fields, ParamLimit)
}

func TestHasParams(t *testing.T) {
	assert.False(t, HasParams(url.Values{}))
	assert.False(t, HasParams(url.Values{"unknown": {"x"}, "taxon_name": {"  "}}))
	assert.True(t, HasParams(url.Values{"limit": {"5"}}))
}

func TestValuesFromJSON(t *testing.T) {
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"taxon_name":"rex","limit":5,"pbdb_fields":["cc","state"],"locality":null}`), &obj))

	v := ValuesFromJSON(obj)
	assert.Equal(t, "rex", v.Get("taxon_name"))
	assert.Equal(t, "5", v.Get("limit"))
	assert.Equal(t, "cc,state", v.Get("pbdb_fields"))
	_, ok := v["locality"]
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	d := Describe()
	assert.Equal(t, "Occurrence index", d.Name)
	var names []string
	for _, p := range d.Params {
		names = append(names, p.Name)
	}
	assert.Subset(t, names, []string{"taxon_name", "locality", "offset", "limit", "idigbio_fields", "pbdb_fields"})
}

// --- service ---

func TestQueryTaxonOnly(t *testing.T) {
	s := testService(t)

	env, err := s.Query(context.Background(), Params{TaxonName: "Tyrannosaurus rex", Limit: 100})
	require.NoError(t, err)

	assert.Equal(t, Counts{TotalCount: 3, IDBCount: 2, PBDBCount: 1}, env.Counts)
	require.Len(t, env.Results, 3)
	assert.Equal(t, "id1", env.Results[0].ID)
	assert.Equal(t, "id2", env.Results[1].ID)
	assert.Equal(t, "p1", env.Results[2].ID)
	assert.True(t, env.Success)
	assert.Equal(t, "test", env.Version)
	assert.Equal(t, "2026-03-14 09:26:53.000000", env.TimeReturned)
	assert.Equal(t, Endpoint, env.Criteria.Endpoint)
	assert.Equal(t, "Tyrannosaurus rex", env.Criteria.Parameters[ParamTaxonName])
	assert.Equal(t, []string{"Tyrannosaurus rex"}, env.Criteria.MatchTerms.Lists()[match.KeyScientificNames])
}

func TestQueryPageKeepsTotals(t *testing.T) {
	s := testService(t)

	env, err := s.Query(context.Background(), Params{TaxonName: "Tyrannosaurus", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, env.Counts.TotalCount)
	require.Len(t, env.Results, 1)
	assert.Equal(t, "id2", env.Results[0].ID)

	env, err = s.Query(context.Background(), Params{TaxonName: "Tyrannosaurus", Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, env.Counts.TotalCount)
	assert.Empty(t, env.Results)
}

func TestQueryFilterAndProjection(t *testing.T) {
	s := testService(t)

	env, err := s.Query(context.Background(), Params{
		TaxonName:       "rex",
		InstitutionCode: "ypm",
		Fields:          map[types.Source][]string{types.SourceIDigBio: {"dwc:institutionCode", "bogus"}},
	})
	require.NoError(t, err)
	assert.Equal(t, Counts{TotalCount: 2, IDBCount: 1, PBDBCount: 1}, env.Counts)
	assert.Equal(t, map[string]any{"dwc:institutionCode": "YPM"}, env.Results[0].Fields)
}

func TestQueryNoMatch(t *testing.T) {
	s := testService(t)

	env, err := s.Query(context.Background(), Params{TaxonName: "Triceratops"})
	require.NoError(t, err)
	assert.Zero(t, env.Counts.TotalCount)
	assert.NotNil(t, env.Results)
	assert.Empty(t, env.Results)
}

func TestQueryRequiresTerm(t *testing.T) {
	_, err := testService(t).Query(context.Background(), Params{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestQueryDeadlineFailsWholeRequest(t *testing.T) {
	s := testService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env, err := s.Query(ctx, Params{TaxonName: "rex"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, env.Counts)
	assert.Nil(t, env.Results)
}

func TestEnvelopeJSON(t *testing.T) {
	env, err := testService(t).Query(context.Background(), Params{TaxonName: "rex", Limit: 1})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, key := range []string{"counts", "results", "criteria", "offset", "limit", "success", "specimenData", "includeAnnotations", "timeReturned", "v"} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "warnings")
	terms := doc["criteria"].(map[string]any)["matchTerms"].(map[string]any)
	assert.Contains(t, terms, "originalLocalities")
}
