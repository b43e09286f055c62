// Package docstore defines the generic document-store contract the service
// is built against. Backends live under internal/infra.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document is absent at read time.
var ErrNotFound = errors.New("document not found")

// Document is an opaque stored record. Data is the raw JSON body; the
// document ID is not required to appear inside it.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Store is the minimal document-store contract: flat collections of JSON
// documents keyed by opaque IDs.
//
// Subscribe returns a cancellable stream of collection snapshots. The first
// snapshot is delivered immediately, so "list the collection" is simply the
// first element of the stream. Callers must invoke the cancel function on
// teardown; the channel is closed when the stream ends.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Put(ctx context.Context, collection, id string, doc any, merge bool) error
	Add(ctx context.Context, collection string, doc any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string) (<-chan []Document, func(), error)
}

// List fetches the current contents of a collection by taking the first
// snapshot of a subscription and cancelling it.
func List(ctx context.Context, store Store, collection string) ([]Document, error) {
	snapshots, cancel, err := store.Subscribe(ctx, collection)
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case snapshot, ok := <-snapshots:
		if !ok {
			return nil, ctx.Err()
		}
		return snapshot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
