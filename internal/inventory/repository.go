package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/tillpoint/tillpoint/internal/store"
)

// Repository persists inventory changes. Records are append-only; there is
// no update or delete operation.
type Repository struct {
	store *store.Store
}

// NewRepository constructs a Repository.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Append writes a new change record. A zero CreatedAt is stamped with the
// current UTC time.
func (r *Repository) Append(ctx context.Context, c Change) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	} else {
		c.CreatedAt = c.CreatedAt.UTC()
	}
	return r.store.Put(ctx, store.CollectionInventoryChanges, c.ID, c)
}

// Exists reports whether a change with the given id has been recorded.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var c Change
	err := r.store.Get(ctx, store.CollectionInventoryChanges, id, &c)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAll enumerates every change record. Order is unspecified.
func (r *Repository) GetAll(ctx context.Context) ([]Change, error) {
	docs, err := r.store.GetAll(ctx, store.CollectionInventoryChanges)
	if err != nil {
		return nil, err
	}
	changes := make([]Change, 0, len(docs))
	for _, doc := range docs {
		c, err := ChangeFromJSON(doc)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// ListByProduct returns the changes recorded against one product. The local
// dataset is modest so a full scan is acceptable.
func (r *Repository) ListByProduct(ctx context.Context, productID string) ([]Change, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Change
	for _, c := range all {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out, nil
}
