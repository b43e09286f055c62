package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"quizdeck-service/internal/docstore"
	"github.com/google/uuid"
)

// DocStore is an in-memory implementation of docstore.Store. It is the
// default backend when no Postgres URL is configured and the workhorse of
// the unit tests.
type DocStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	subscribers map[string]map[chan []docstore.Document]struct{}
}

func NewDocStore() *DocStore {
	return &DocStore{
		collections: make(map[string]map[string]json.RawMessage),
		subscribers: make(map[string]map[chan []docstore.Document]struct{}),
	}
}

func (s *DocStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Data: append(json.RawMessage(nil), data...)}, nil
}

func (s *DocStore) Put(_ context.Context, collection, id string, doc any, merge bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collections[collection]
	if col == nil {
		col = make(map[string]json.RawMessage)
		s.collections[collection] = col
	}

	if merge {
		if existing, ok := col[id]; ok {
			data, err = mergeObjects(existing, data)
			if err != nil {
				return err
			}
		}
	}
	col[id] = data
	s.broadcastLocked(collection)
	return nil
}

func (s *DocStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Put(ctx, collection, id, doc, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := col[id]; !ok {
		return nil
	}
	delete(col, id)
	s.broadcastLocked(collection)
	return nil
}

// Subscribe registers a snapshot stream for a collection. The initial
// snapshot is delivered before Subscribe returns; the cancel function must
// be called on teardown and closes the channel.
func (s *DocStore) Subscribe(_ context.Context, collection string) (<-chan []docstore.Document, func(), error) {
	ch := make(chan []docstore.Document, 8)

	s.mu.Lock()
	subs := s.subscribers[collection]
	if subs == nil {
		subs = make(map[chan []docstore.Document]struct{})
		s.subscribers[collection] = subs
	}
	subs[ch] = struct{}{}
	initial := s.snapshotLocked(collection)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[collection][ch]; ok {
			delete(s.subscribers[collection], ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *DocStore) broadcastLocked(collection string) {
	snapshot := s.snapshotLocked(collection)
	for ch := range s.subscribers[collection] {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so slow consumers never block writers.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *DocStore) snapshotLocked(collection string) []docstore.Document {
	col := s.collections[collection]
	docs := make([]docstore.Document, 0, len(col))
	for id, data := range col {
		docs = append(docs, docstore.Document{ID: id, Data: append(json.RawMessage(nil), data...)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// mergeObjects overlays the top-level fields of next onto base.
func mergeObjects(base, next json.RawMessage) (json.RawMessage, error) {
	var baseMap, nextMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, fmt.Errorf("merge existing document: %w", err)
	}
	if err := json.Unmarshal(next, &nextMap); err != nil {
		return nil, fmt.Errorf("merge incoming document: %w", err)
	}
	for k, v := range nextMap {
		baseMap[k] = v
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}
	return merged, nil
}
