package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/store"
)

type fixture struct {
	store    *store.Store
	products *catalog.Repository
	changes  *inventory.Repository
	sales    *Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	products := catalog.NewRepository(s)
	changes := inventory.NewRepository(s)
	return &fixture{
		store:    s,
		products: products,
		changes:  changes,
		sales:    NewRepository(s, products, changes, nil),
	}
}

func TestCreateSaleDeductsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", Name: "Beans", Price: 10, StockQuantity: 5}))

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{{ProductID: "P1", Name: "Beans", Quantity: 2, UnitPrice: 10}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, sale.ID)
	require.False(t, sale.CreatedAt.IsZero())
	require.True(t, sale.CreatedAt.Equal(sale.UpdatedAt))

	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 3, p.StockQuantity)

	changes, err := f.changes.ListByProduct(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, -2, changes[0].Delta)
	require.Equal(t, inventory.ReasonSale, changes[0].Reason)
}

func TestCreateSaleMissingProductIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", StockQuantity: 5}))

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{
			{ProductID: "GHOST", Name: "Ghost", Quantity: 1, UnitPrice: 1},
			{ProductID: "P1", Name: "Beans", Quantity: 1, UnitPrice: 10},
		},
	})
	require.NoError(t, err)

	// The sale record keeps the bad line.
	stored, err := f.sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)

	// No stock mutation or audit row for the missing product.
	ghostChanges, err := f.changes.ListByProduct(ctx, "GHOST")
	require.NoError(t, err)
	require.Empty(t, ghostChanges)

	// The valid line is still applied.
	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 4, p.StockQuantity)

	require.EqualValues(t, 1, f.sales.SkippedLines())
}

func TestCreateSaleAllowsNegativeStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", StockQuantity: 1}))

	_, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{{ProductID: "P1", Quantity: 3, UnitPrice: 5}},
	})
	require.NoError(t, err)

	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, -2, p.StockQuantity)
}

func TestRecordManualAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", StockQuantity: 3}))

	require.NoError(t, f.sales.RecordManualAdjustment(ctx, "P1", 10, inventory.ReasonReturn))

	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 13, p.StockQuantity)

	changes, err := f.changes.ListByProduct(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, 10, changes[0].Delta)
	require.Equal(t, inventory.ReasonReturn, changes[0].Reason)
}

func TestRecordManualAdjustmentMissingProductNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sales.RecordManualAdjustment(ctx, "GHOST", 5, inventory.ReasonAdjustment))

	all, err := f.changes.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
	require.EqualValues(t, 1, f.sales.SkippedLines())
}

func TestReconcileReplaysMissingDeductions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", StockQuantity: 10}))

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{{ProductID: "P1", Quantity: 4, UnitPrice: 2}},
	})
	require.NoError(t, err)

	// Nothing to repair right after a clean sale; Reconcile is idempotent.
	repaired, err := f.sales.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, repaired)

	// Simulate a crash between persisting the sale and applying its lines:
	// a sale exists with no audit record and no deduction.
	orphan := Sale{
		ID:        "orphan",
		Items:     []SaleItem{{ProductID: "P1", Quantity: 3, UnitPrice: 2}},
		CreatedAt: sale.CreatedAt,
		UpdatedAt: sale.UpdatedAt,
	}
	require.NoError(t, f.store.Put(ctx, store.CollectionSales, orphan.ID, orphan))

	repaired, err = f.sales.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)

	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 3, p.StockQuantity)

	// Replaying again must change nothing.
	repaired, err = f.sales.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, repaired)

	p, err = f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 3, p.StockQuantity)
}

func TestReconcileAppliesDeductionWhenProductArrivesLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The product is unknown at checkout, so the line is skipped.
	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{{ProductID: "P9", Quantity: 2, UnitPrice: 5}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, f.sales.SkippedLines())

	repaired, err := f.sales.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, repaired)

	// The product arrives later, as a sync pull would deliver it. The owed
	// deduction is applied retroactively.
	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P9", StockQuantity: 10}))

	repaired, err = f.sales.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)

	p, err := f.products.Get(ctx, "P9")
	require.NoError(t, err)
	require.Equal(t, 8, p.StockQuantity)

	changes, err := f.changes.ListByProduct(ctx, "P9")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, saleChangeID(sale.ID, 0), changes[0].ID)
	require.Equal(t, -2, changes[0].Delta)
}

func TestCreateSaleProcessesItemsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.products.Upsert(ctx, catalog.Product{ID: "P1", StockQuantity: 10}))

	_, err := f.sales.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItem{
			{ProductID: "P1", Quantity: 1, UnitPrice: 1},
			{ProductID: "P1", Quantity: 2, UnitPrice: 1},
		},
	})
	require.NoError(t, err)

	p, err := f.products.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 7, p.StockQuantity)

	changes, err := f.changes.ListByProduct(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
}
