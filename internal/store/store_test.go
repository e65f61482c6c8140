package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := testDoc{ID: "p1", Name: "Espresso", Qty: 12}
	require.NoError(t, s.Put(ctx, CollectionProducts, in.ID, in))

	var out testDoc
	require.NoError(t, s.Get(ctx, CollectionProducts, "p1", &out))
	require.Equal(t, in, out)
}

func TestPutOverwritesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionProducts, "p1", testDoc{ID: "p1", Qty: 1}))
	require.NoError(t, s.Put(ctx, CollectionProducts, "p1", testDoc{ID: "p1", Qty: 2}))

	var out testDoc
	require.NoError(t, s.Get(ctx, CollectionProducts, "p1", &out))
	require.Equal(t, 2, out.Qty)

	n, err := s.Count(ctx, CollectionProducts)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)

	var out testDoc
	err := s.Get(context.Background(), CollectionProducts, "absent", &out)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionSales, "s1", testDoc{ID: "s1"}))
	require.NoError(t, s.Put(ctx, CollectionSales, "s2", testDoc{ID: "s2"}))
	require.NoError(t, s.Put(ctx, CollectionProducts, "p1", testDoc{ID: "p1"}))

	docs, err := s.GetAll(ctx, CollectionSales)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestCollectionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionProducts, "x", testDoc{ID: "x", Qty: 1}))

	var out testDoc
	err := s.Get(ctx, CollectionSales, "x", &out)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, "lastSyncTime")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutSetting(ctx, "lastSyncTime", "2026-02-01T10:00:00Z"))
	got, err := s.GetSetting(ctx, "lastSyncTime")
	require.NoError(t, err)
	require.Equal(t, "2026-02-01T10:00:00Z", got)

	require.NoError(t, s.PutSetting(ctx, "lastSyncTime", "2026-02-02T10:00:00Z"))
	got, err = s.GetSetting(ctx, "lastSyncTime")
	require.NoError(t, err)
	require.Equal(t, "2026-02-02T10:00:00Z", got)
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "till.db")
	ctx := context.Background()

	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, CollectionProducts, "p1", testDoc{ID: "p1", Name: "Beans", Qty: 7}))
	require.NoError(t, s.Close())

	// Reopen runs the migration again; it must be idempotent.
	s, err = Open(dsn)
	require.NoError(t, err)
	defer s.Close()

	var out testDoc
	require.NoError(t, s.Get(ctx, CollectionProducts, "p1", &out))
	require.Equal(t, testDoc{ID: "p1", Name: "Beans", Qty: 7}, out)
}
