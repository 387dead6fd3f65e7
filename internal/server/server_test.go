// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/index"
	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/internal/match"
	"github.com/pdiddy/epandda/internal/occurrence"
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

func testServer(t *testing.T, mutate func(*types.Config)) http.Handler {
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
		GridSet:         types.GridSet{IDigBio: types.GridRefs{"G1"}, PBDB: types.GridRefs{"G2"}},
	}))
	require.NoError(t, idx.PutLocality(ctx, types.LocalityEntry{
		ID:                "l-mt",
		StateProvinceName: "Montana",
		GridSet:           types.GridSet{IDigBio: types.GridRefs{"G3"}},
	}))
	for _, r := range []types.Record{
		{Source: types.SourceIDigBio, ID: "id1", Fields: map[string]any{"idigbio:uuid": "u-1"}},
		{Source: types.SourceIDigBio, ID: "id2", Fields: map[string]any{"idigbio:uuid": "u-2"}},
		{Source: types.SourcePBDB, ID: "p1", Fields: map[string]any{"occurrence_no": "42"}},
	} {
		require.NoError(t, recs.Put(ctx, r))
	}

	cfg := types.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	grids := gridMap{"G1": {"id1", "id2"}, "G2": {"p1"}, "G3": {"id2"}}
	engine := match.NewEngine(idx, match.NewGridResolver(grids, cfg.Match.StrictGrids))
	svc := occurrence.NewService(engine, resolve.New(recs), occurrence.WithVersion(cfg.Server.Version))
	return New(svc, annotation.New(), cfg, &logging.Nop).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func counts(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	c, ok := env["counts"].(map[string]any)
	require.True(t, ok, "counts missing")
	return c
}

// --- routes ---

func TestIndexListsRoutes(t *testing.T) {
	rec, body := do(t, testServer(t, nil), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	routes := body["routes"].(map[string]any)
	assert.Contains(t, routes, "GET /occurrences")
	assert.Contains(t, routes, "POST /occurrences/batch")
	assert.Contains(t, routes, "POST /annotations")
	assert.Equal(t, "1.0", body["v"])
}

func TestHealth(t *testing.T) {
	rec, body := do(t, testServer(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/occurrences", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// --- occurrences ---

func TestOccurrencesDescriptionWithoutParams(t *testing.T) {
	rec, body := do(t, testServer(t, nil), httptest.NewRequest(http.MethodGet, "/occurrences", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Occurrence index", body["name"])
	assert.NotEmpty(t, body["params"])
}

func TestOccurrencesGet(t *testing.T) {
	h := testServer(t, nil)
	q := url.Values{"taxon_name": {"Tyrannosaurus rex"}, "limit": {"2"}}

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/occurrences?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := counts(t, body)
	assert.Equal(t, float64(3), c["totalCount"])
	assert.Equal(t, float64(2), c["idbCount"])
	assert.Equal(t, float64(1), c["pbdbCount"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, true, body["success"])
}

func TestOccurrencesIntersectsLocality(t *testing.T) {
	q := url.Values{"scientific_name": {"Tyrannosaurus rex"}, "locality": {"Montana"}}
	rec, body := do(t, testServer(t, nil), httptest.NewRequest(http.MethodGet, "/occurrences?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	c := counts(t, body)
	assert.Equal(t, float64(1), c["idbCount"])
	assert.Equal(t, float64(0), c["pbdbCount"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "id2", results[0].(map[string]any)["id"])
}

func TestOccurrencesPostJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/occurrences",
		strings.NewReader(`{"taxon_name": "Tyrannosaurus rex", "pbdb_fields": ["occurrence_no", "bogus"]}`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := body["results"].([]any)
	require.Len(t, results, 3)
	pbdb := results[2].(map[string]any)
	assert.Equal(t, map[string]any{"occurrence_no": "42"}, pbdb["fields"])
}

func TestOccurrencesPostForm(t *testing.T) {
	form := url.Values{"locality": {"Montana"}}
	req := httptest.NewRequest(http.MethodPost, "/occurrences", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), counts(t, body)["totalCount"])
}

func TestOccurrencesValidationError(t *testing.T) {
	rec, body := do(t, testServer(t, nil), httptest.NewRequest(http.MethodGet, "/occurrences?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "taxon_name")
	assert.Contains(t, errs, "limit")
}

func TestOccurrencesMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/occurrences", strings.NewReader(`{"taxon_name":`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["errors"], apperrors.GeneralField)
}

func TestOccurrencesDeadline(t *testing.T) {
	h := testServer(t, nil)
	expired := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithDeadline(r.Context(), time.Now().Add(-time.Second))
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})

	rec, body := do(t, expired, httptest.NewRequest(http.MethodGet, "/occurrences?taxon_name=rex", nil))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, body["errors"], apperrors.GeneralField)
	assert.NotContains(t, body, "results")
}

// --- batch ---

func TestBatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/occurrences/batch", strings.NewReader(
		`{"queries": [{"taxon_name": "Tyrannosaurus rex"}, {"locality": "Montana", "limit": 1}]}`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	queries := body["queries"].([]any)
	require.Len(t, queries, 2)
	assert.Equal(t, float64(3), counts(t, queries[0].(map[string]any))["totalCount"])
	assert.Equal(t, float64(1), counts(t, queries[1].(map[string]any))["totalCount"])
	assert.NotEmpty(t, body["timeReturned"])
}

func TestBatchEmpty(t *testing.T) {
	for _, payload := range []string{``, `{}`, `{"queries": []}`} {
		req := httptest.NewRequest(http.MethodPost, "/occurrences/batch", strings.NewReader(payload))
		rec, body := do(t, testServer(t, nil), req)
		require.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Contains(t, body["errors"], apperrors.GeneralField)
	}
}

func TestBatchInvalidQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/occurrences/batch",
		strings.NewReader(`{"queries": [{"taxon_name": "rex"}, {"limit": 5}]}`))

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["errors"], "queries[1].taxon_name")
}

// --- annotations ---

func TestAnnotate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/annotations",
		strings.NewReader(`{"target": {"uuid": "T1"}, "body": {"matchedOn": "Rex skull", "pbdb_id": "42"}}`))

	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "oa:Annotation", body["@type"])
	target := body["hasTarget"].(map[string]any)
	assert.Equal(t, "http://search.idigbio.org/v2/view/records/T1", target["hasSource"].(map[string]any)["@id"])
	b := body["hasBody"].(map[string]any)
	assert.Equal(t, "Rex skull", b["! cnt:chars"])
	assert.Equal(t, "https://paleobiodb.org/data1.2/refs/single.json?id=42&show=both", b["@id"])
}

func TestAnnotateMissingTarget(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/annotations", strings.NewReader(`{"body": {}}`))
	rec, body := do(t, testServer(t, nil), req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["errors"], "uuid")
}

// --- middleware ---

func TestRecovery(t *testing.T) {
	h := Recovery(&logging.Nop)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["errors"], apperrors.GeneralField)
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want bool
	}{
		{"disabled", 0, false},
		{"enabled", time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hasDeadline bool
			h := Timeout(tt.d)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				_, hasDeadline = r.Context().Deadline()
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, hasDeadline)
		})
	}
}

func TestLoggerAttachesContextLogger(t *testing.T) {
	var buf strings.Builder
	logger := logging.New(&buf)
	h := Logger(&logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	out := buf.String()
	assert.Contains(t, out, `"path":"/x"`)
	assert.Contains(t, out, `"message":"inside"`)
	assert.Contains(t, out, `"status":418`)
}
