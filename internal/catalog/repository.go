package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/tillpoint/tillpoint/internal/store"
)

// Repository persists products in the local store. It is the only writer of
// the products collection.
type Repository struct {
	store *store.Store
}

// NewRepository constructs a Repository.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Upsert writes the product, overwriting any record with the same id. When
// the caller leaves UpdatedAt zero, the write is stamped with the current
// UTC time.
func (r *Repository) Upsert(ctx context.Context, p Product) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	} else {
		p.UpdatedAt = p.UpdatedAt.UTC()
	}
	return r.store.Put(ctx, store.CollectionProducts, p.ID, p)
}

// UpsertFromRemote merges a remote product using last-write-wins on
// UpdatedAt. The strictly later timestamp wins; on a tie the local record is
// kept, which favors in-progress edits on this device. Used only by the sync
// engine.
func (r *Repository) UpsertFromRemote(ctx context.Context, incoming Product) error {
	existing, err := r.Get(ctx, incoming.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return r.store.Put(ctx, store.CollectionProducts, incoming.ID, normalize(incoming))
	case err != nil:
		return err
	}
	if incoming.UpdatedAt.After(existing.UpdatedAt) {
		return r.store.Put(ctx, store.CollectionProducts, incoming.ID, normalize(incoming))
	}
	return nil
}

// Get loads a single product. Returns store.ErrNotFound when absent.
func (r *Repository) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	if err := r.store.Get(ctx, store.CollectionProducts, id, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetAll enumerates every product. Order is unspecified.
func (r *Repository) GetAll(ctx context.Context) ([]Product, error) {
	docs, err := r.store.GetAll(ctx, store.CollectionProducts)
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := ProductFromJSON(doc)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func normalize(p Product) Product {
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}
