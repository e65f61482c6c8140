package sync

import (
	"context"
	"encoding/json"
)

// RemoteStore is the only network dependency of the sync engine: a
// document-oriented store addressed by collection and entity id.
type RemoteStore interface {
	// GetAll returns the raw documents of every record in the collection.
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	// Set upserts a document. With merge set, fields of an existing document
	// that the payload does not mention are preserved.
	Set(ctx context.Context, collection, id string, doc map[string]any, merge bool) error
	// Ping reports reachability of the remote store.
	Ping(ctx context.Context) error
}
