package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an embedded Store backed by chromem-go, a pure Go vector
// database. It serves local development and tests; deployments talk to the
// hosted service through RemoteStore instead.
//
// chromem has no way to enumerate a collection, so the store keeps its own
// record index alongside the vectors to satisfy List. Everything lives in
// process memory.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	records     map[string][]Record // namespace -> insertion-ordered corpus
}

// NewChromemStore creates an empty embedded store using the given embedder.
func NewChromemStore(embedder Embedder) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem store requires an embedder")
	}
	return &ChromemStore{
		db:          chromem.NewDB(),
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string][]Record),
	}, nil
}

// collection returns the namespace's collection, creating it on first use.
func (s *ChromemStore) collection(namespace string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[namespace]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[namespace]; ok {
		return col, nil
	}

	name := namespace
	if name == "" {
		name = "default"
	}
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}
	s.collections[namespace] = col
	return col, nil
}

// Add embeds the content and appends a new record, returning its id.
func (s *ChromemStore) Add(ctx context.Context, namespace, content string, meta Metadata) (string, error) {
	col, err := s.collection(namespace)
	if err != nil {
		return "", err
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}

	now := time.Now().UTC()
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = MetadataSchemaVersion
	}
	id := uuid.NewString()

	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Embedding: vec,
		Metadata:  EncodeMeta(meta, now),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	s.records[namespace] = append(s.records[namespace], Record{
		ID:        id,
		Content:   content,
		CreatedAt: now,
		Metadata:  meta,
	})
	s.mu.Unlock()

	return id, nil
}

// Search embeds the query and returns the nearest records, best first.
func (s *ChromemStore) Search(ctx context.Context, namespace, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	col, ok := s.collections[namespace]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	// chromem rejects nResults larger than the collection
	if n := col.Count(); n < limit {
		limit = n
	}
	if limit == 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, res := range results {
		meta, createdAt := DecodeMeta(res.Metadata)
		records = append(records, Record{
			ID:        res.ID,
			Content:   res.Content,
			CreatedAt: createdAt,
			Score:     float64(res.Similarity),
			Metadata:  meta,
		})
	}
	return records, nil
}

// List returns every record in the namespace in insertion order.
func (s *ChromemStore) List(_ context.Context, namespace string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records[namespace]))
	copy(out, s.records[namespace])
	return out, nil
}
