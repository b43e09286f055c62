package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"quizdeck-service/internal/docstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DocStore implements docstore.Store on a single JSONB table keyed by
// (collection, id). Merge writes map onto a JSONB || upsert.
//
// Subscribe is poll-based: snapshots are re-read at a fixed interval and
// emitted only when the collection contents changed.
type DocStore struct {
	pool         *pgxpool.Pool
	pollInterval time.Duration
}

func NewDocStore(pool *pgxpool.Pool, pollInterval time.Duration) *DocStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &DocStore{pool: pool, pollInterval: pollInterval}
}

func (s *DocStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("get document: %w", err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *DocStore) Put(ctx context.Context, collection, id string, doc any, merge bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	update := `data = EXCLUDED.data`
	if merge {
		update = `data = documents.data || EXCLUDED.data`
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id) DO UPDATE SET `+update+`, updated_at = now()`,
		collection, id, data,
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (s *DocStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Put(ctx, collection, id, doc, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`,
		collection, id,
	); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Subscribe polls the collection and emits a snapshot whenever its contents
// change. The initial snapshot is delivered before Subscribe returns.
func (s *DocStore) Subscribe(ctx context.Context, collection string) (<-chan []docstore.Document, func(), error) {
	initial, err := s.list(ctx, collection)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []docstore.Document, 8)
	ch <- initial
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
	}

	go func() {
		defer close(ch)
		last := fingerprint(initial)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot, err := s.list(ctx, collection)
				if err != nil {
					continue
				}
				fp := fingerprint(snapshot)
				if fp == last {
					continue
				}
				last = fp
				select {
				case ch <- snapshot:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, cancel, nil
}

func (s *DocStore) list(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var doc docstore.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func fingerprint(docs []docstore.Document) string {
	var buf bytes.Buffer
	for _, doc := range docs {
		buf.WriteString(doc.ID)
		buf.WriteByte(0)
		buf.Write(doc.Data)
		buf.WriteByte(0)
	}
	return buf.String()
}
