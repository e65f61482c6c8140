package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewRepository(s)
}

func TestUpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := Product{ID: "p1", Name: "Espresso", Price: 2.5, StockQuantity: 5}
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Espresso", got.Name)
	require.False(t, got.UpdatedAt.IsZero(), "upsert must stamp updatedAt")
	require.Equal(t, time.UTC, got.UpdatedAt.Location())
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertFromRemoteNewerWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.NoError(t, repo.Upsert(ctx, Product{ID: "p1", Name: "local", UpdatedAt: t1}))
	require.NoError(t, repo.UpsertFromRemote(ctx, Product{ID: "p1", Name: "remote", UpdatedAt: t2}))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "remote", got.Name)
}

func TestUpsertFromRemoteOlderLoses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, Product{ID: "p1", Name: "local", UpdatedAt: t1}))
	require.NoError(t, repo.UpsertFromRemote(ctx, Product{ID: "p1", Name: "remote", UpdatedAt: t1.Add(-time.Minute)}))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "local", got.Name)
}

func TestUpsertFromRemoteTieKeepsLocal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, Product{ID: "p1", Name: "local", UpdatedAt: t1}))
	require.NoError(t, repo.UpsertFromRemote(ctx, Product{ID: "p1", Name: "remote", UpdatedAt: t1}))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "local", got.Name)
}

func TestUpsertFromRemoteInsertsWhenAbsent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := Product{ID: "p9", Name: "remote only", UpdatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpsertFromRemote(ctx, p))

	got, err := repo.Get(ctx, "p9")
	require.NoError(t, err)
	require.Equal(t, "remote only", got.Name)
}

func TestWireRoundTrip(t *testing.T) {
	in := Product{
		ID:            "p1",
		Name:          "Beans 1kg",
		Description:   "whole beans",
		Barcode:       "4006381333931",
		Category:      "coffee",
		Price:         18.9,
		Cost:          11.2,
		StockQuantity: -3,
		UpdatedAt:     time.Date(2026, 2, 1, 10, 30, 15, 0, time.UTC),
	}

	doc := in.Document()
	require.EqualValues(t, SchemaVersion, doc["schemaVersion"])

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	out, err := ProductFromJSON(data)
	require.NoError(t, err)

	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.Name, out.Name)
	require.Equal(t, in.Barcode, out.Barcode)
	require.Equal(t, in.Price, out.Price)
	require.Equal(t, in.StockQuantity, out.StockQuantity)
	require.True(t, in.UpdatedAt.Equal(out.UpdatedAt))
}

func TestProductFromJSONMalformed(t *testing.T) {
	_, err := ProductFromJSON([]byte(`{"id":"p1","price":"free"}`))
	require.Error(t, err)

	_, err = ProductFromJSON([]byte(`{"name":"no id"}`))
	require.Error(t, err)

	_, err = ProductFromJSON([]byte(`not json`))
	require.Error(t, err)
}
