package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStore is a scriptable test double for the Store interface.
// Added records are kept in memory and returned by List; Search results can
// be scripted per query (falling back to the full corpus). Every call is
// recorded for assertions, and Err/failures can force errors.
type MockStore struct {
	mu sync.Mutex

	Records       map[string][]Record // namespace -> corpus
	SearchResults map[string][]Record // query -> scripted results
	Err           error               // returned by every call when set
	FailCount     int                 // fail this many calls, then succeed

	Calls []string // e.g. "add:user", "search:user:favorite color"

	nextID int
}

// NewMockStore creates an empty mock.
func NewMockStore() *MockStore {
	return &MockStore{
		Records:       make(map[string][]Record),
		SearchResults: make(map[string][]Record),
	}
}

// errFor returns the scripted error for this call. With FailCount zero the
// mock fails every call; with FailCount N it fails N calls then recovers.
func (m *MockStore) errFor() error {
	if m.Err == nil {
		return nil
	}
	err := m.Err
	if m.FailCount > 0 {
		m.FailCount--
		if m.FailCount == 0 {
			m.Err = nil
		}
	}
	return err
}

// Seed inserts a record directly, bypassing call recording. Returns the id.
func (m *MockStore) Seed(namespace string, rec Record) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		m.nextID++
		rec.ID = fmt.Sprintf("mem-%d", m.nextID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.Records[namespace] = append(m.Records[namespace], rec)
	return rec.ID
}

// Add records the call and appends the record to the namespace corpus.
func (m *MockStore) Add(_ context.Context, namespace, content string, meta Metadata) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "add:"+namespace)
	if err := m.errFor(); err != nil {
		return "", err
	}
	m.nextID++
	id := fmt.Sprintf("mem-%d", m.nextID)
	m.Records[namespace] = append(m.Records[namespace], Record{
		ID:        id,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Metadata:  meta,
	})
	return id, nil
}

// Search returns the scripted results for the query if present, otherwise the
// namespace corpus in insertion order, truncated to limit.
func (m *MockStore) Search(_ context.Context, namespace, query string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "search:"+namespace+":"+query)
	if err := m.errFor(); err != nil {
		return nil, err
	}

	results, ok := m.SearchResults[query]
	if !ok {
		results = m.Records[namespace]
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]Record, len(results))
	copy(out, results)
	return out, nil
}

// List returns the namespace corpus in insertion order.
func (m *MockStore) List(_ context.Context, namespace string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "list:"+namespace)
	if err := m.errFor(); err != nil {
		return nil, err
	}
	out := make([]Record, len(m.Records[namespace]))
	copy(out, m.Records[namespace])
	return out, nil
}
