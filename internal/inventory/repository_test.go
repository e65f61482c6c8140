package inventory

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

func TestAppendAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, Change{ID: "c1", ProductID: "p1", Delta: -2, Reason: ReasonSale}))
	require.NoError(t, repo.Append(ctx, Change{ID: "c2", ProductID: "p2", Delta: 10, Reason: ReasonReturn}))
	require.NoError(t, repo.Append(ctx, Change{ID: "c3", ProductID: "p1", Delta: -1, Reason: ReasonDamage}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	forP1, err := repo.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, forP1, 2)
	for _, c := range forP1 {
		require.Equal(t, "p1", c.ProductID)
		require.False(t, c.CreatedAt.IsZero())
	}
}

func TestExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "c1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Append(ctx, Change{ID: "c1", ProductID: "p1", Delta: 1, Reason: ReasonAdjustment}))

	ok, err = repo.Exists(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChangeWireRoundTrip(t *testing.T) {
	in := Change{
		ID:        "c1",
		ProductID: "p1",
		Delta:     -4,
		Reason:    ReasonSale,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	doc := in.Document()
	require.EqualValues(t, SchemaVersion, doc["schemaVersion"])

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	out, err := ChangeFromJSON(data)
	require.NoError(t, err)

	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.Delta, out.Delta)
	require.Equal(t, in.Reason, out.Reason)
	require.True(t, in.CreatedAt.Equal(out.CreatedAt))
}
