package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/store"
)

// CreateSaleInput carries the checkout parameters for a new sale.
type CreateSaleInput struct {
	Items           []SaleItem
	Discount        float64
	TaxRatePercent  float64
	CashPaid        float64
	CardPaid        float64
	MobileMoneyPaid float64
}

// Repository persists sales and applies their stock effects. Stock deduction
// is a sequence of per-record upserts plus an append-only audit trail, not a
// single transaction: the sale record is durable once written even if a later
// step fails. Reconcile replays any deductions lost in that window.
type Repository struct {
	store    *store.Store
	products *catalog.Repository
	changes  *inventory.Repository
	logger   *slog.Logger

	skippedLines atomic.Int64
}

// NewRepository constructs a Repository.
func NewRepository(s *store.Store, products *catalog.Repository, changes *inventory.Repository, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: s, products: products, changes: changes, logger: logger}
}

// CreateSale records a sale and deducts stock for each line in input order.
// The sale is persisted first; a failure while deducting stock leaves the
// sale durable and returns an error, and a later Reconcile pass closes the
// gap. Lines referencing a missing product are skipped without error but
// remain part of the sale record.
func (r *Repository) CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error) {
	now := time.Now().UTC()
	sale := Sale{
		ID:              uuid.NewString(),
		Items:           input.Items,
		Discount:        input.Discount,
		TaxRatePercent:  input.TaxRatePercent,
		CashPaid:        input.CashPaid,
		CardPaid:        input.CardPaid,
		MobileMoneyPaid: input.MobileMoneyPaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.Put(ctx, store.CollectionSales, sale.ID, sale); err != nil {
		return Sale{}, err
	}
	for i := range sale.Items {
		if err := r.applyLine(ctx, sale, i, now); err != nil {
			return sale, fmt.Errorf("sales: sale %s recorded, stock deduction incomplete: %w", sale.ID, err)
		}
	}
	return sale, nil
}

// applyLine deducts stock for one sale line and appends its audit record.
// The audit record id is derived from the sale id and line index so the
// operation can be replayed idempotently.
func (r *Repository) applyLine(ctx context.Context, sale Sale, index int, now time.Time) error {
	item := sale.Items[index]
	product, err := r.products.Get(ctx, item.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		r.skippedLines.Add(1)
		r.logger.Warn("sale line references missing product",
			slog.String("sale_id", sale.ID),
			slog.String("product_id", item.ProductID))
		return nil
	}
	if err != nil {
		return err
	}
	product.StockQuantity -= item.Quantity
	product.UpdatedAt = now
	if err := r.products.Upsert(ctx, product); err != nil {
		return err
	}
	return r.changes.Append(ctx, inventory.Change{
		ID:        saleChangeID(sale.ID, index),
		ProductID: item.ProductID,
		Delta:     -item.Quantity,
		Reason:    inventory.ReasonSale,
		CreatedAt: now,
	})
}

// RecordManualAdjustment applies a signed stock delta outside of a sale and
// appends one audit record with the given reason. A missing product is a
// silent no-op.
func (r *Repository) RecordManualAdjustment(ctx context.Context, productID string, delta int, reason string) error {
	product, err := r.products.Get(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		r.skippedLines.Add(1)
		r.logger.Warn("adjustment references missing product", slog.String("product_id", productID))
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	product.StockQuantity += delta
	product.UpdatedAt = now
	if err := r.products.Upsert(ctx, product); err != nil {
		return err
	}
	return r.changes.Append(ctx, inventory.Change{
		ID:        uuid.NewString(),
		ProductID: productID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: now,
	})
}

// GetAll enumerates every sale. Order is unspecified.
func (r *Repository) GetAll(ctx context.Context) ([]Sale, error) {
	docs, err := r.store.GetAll(ctx, store.CollectionSales)
	if err != nil {
		return nil, err
	}
	sales := make([]Sale, 0, len(docs))
	for _, doc := range docs {
		s, err := SaleFromJSON(doc)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, nil
}

// Get loads a single sale by id.
func (r *Repository) Get(ctx context.Context, id string) (Sale, error) {
	var s Sale
	if err := r.store.Get(ctx, store.CollectionSales, id, &s); err != nil {
		return Sale{}, err
	}
	return s, nil
}

// Reconcile replays stock deductions that were lost between persisting a
// sale and applying its lines. For every sale line whose audit record is
// absent the deduction is re-applied and the record appended. Idempotent:
// running it again repairs nothing further. Returns the number of repaired
// lines.
//
// A line skipped at sale time because its product was missing is repaired
// the same way: once the product exists locally, typically pulled by a later
// sync, the deduction is applied retroactively. The sale still owes its
// stock effect no matter when the product record arrived.
func (r *Repository) Reconcile(ctx context.Context) (int, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, sale := range all {
		for i := range sale.Items {
			ok, err := r.changes.Exists(ctx, saleChangeID(sale.ID, i))
			if err != nil {
				return repaired, err
			}
			if ok {
				continue
			}
			// Lines whose product is still missing stay skipped; replaying
			// them would only repeat the no-op.
			if _, err := r.products.Get(ctx, sale.Items[i].ProductID); errors.Is(err, store.ErrNotFound) {
				continue
			} else if err != nil {
				return repaired, err
			}
			if err := r.applyLine(ctx, sale, i, time.Now().UTC()); err != nil {
				return repaired, err
			}
			repaired++
		}
	}
	return repaired, nil
}

// SkippedLines reports how many stock mutations were silently skipped
// because the referenced product did not exist.
func (r *Repository) SkippedLines() int64 {
	return r.skippedLines.Load()
}

func saleChangeID(saleID string, index int) string {
	return fmt.Sprintf("%s:%d", saleID, index)
}
