// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/epandda/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFetchByIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, types.Record{Source: types.SourceIDigBio, ID: "b", Fields: map[string]any{"idigbio:uuid": "uuid-b"}}))
	require.NoError(t, s.Put(ctx, types.Record{Source: types.SourceIDigBio, ID: "a", Fields: map[string]any{"idigbio:uuid": "uuid-a"}}))
	require.NoError(t, s.Put(ctx, types.Record{Source: types.SourcePBDB, ID: "a", Fields: map[string]any{"occurrence_no": "42"}}))

	got, err := s.FetchByIDs(ctx, types.SourceIDigBio, []string{"b", "a", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "uuid-a", got[0].Fields["idigbio:uuid"])
	assert.Equal(t, types.SourceIDigBio, got[0].Source)
	assert.Equal(t, "b", got[1].ID)

	got, err = s.FetchByIDs(ctx, types.SourcePBDB, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].Fields["occurrence_no"])
}

func TestFetchByIDsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.FetchByIDs(context.Background(), types.SourcePBDB, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchByIDsBatches(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < fetchBatch+25; i++ {
		id := fmt.Sprintf("r%04d", i)
		ids = append(ids, id)
		require.NoError(t, s.Put(ctx, types.Record{Source: types.SourcePBDB, ID: id}))
	}

	got, err := s.FetchByIDs(ctx, types.SourcePBDB, ids)
	require.NoError(t, err)
	assert.Len(t, got, len(ids))
}

func TestPutReplacesAndCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, types.Record{Source: types.SourcePBDB, ID: "p1", Fields: map[string]any{"state": "MT"}}))
	require.NoError(t, s.Put(ctx, types.Record{Source: types.SourcePBDB, ID: "p1", Fields: map[string]any{"state": "WY"}}))

	got, err := s.FetchByIDs(ctx, types.SourcePBDB, []string{"p1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "WY", got[0].Fields["state"])

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Source]int{types.SourcePBDB: 1}, counts)
}

func TestPutRequiresKey(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.Put(context.Background(), types.Record{ID: "x"}))
	assert.Error(t, s.Put(context.Background(), types.Record{Source: types.SourcePBDB}))
}
