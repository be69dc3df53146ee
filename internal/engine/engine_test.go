package engine

import (
	"testing"
	"time"

	"github.com/mnemo-ai/mnemod/internal/memstore"
	"github.com/mnemo-ai/mnemod/internal/store"
)

const testNS = "user-memories"

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEngine wires an engine over a mock store and in-memory database.
func testEngine(t *testing.T) (*Engine, *memstore.MockStore) {
	t.Helper()
	mock := memstore.NewMockStore()
	eng := New(mock, testDB(t), testNS)
	t.Cleanup(eng.Stop)
	return eng, mock
}

// seed inserts a record with the given id, content, and age.
func seed(mock *memstore.MockStore, id, content string, age time.Duration, meta memstore.Metadata) memstore.Record {
	rec := memstore.Record{
		ID:        id,
		Content:   content,
		CreatedAt: time.Now().Add(-age).UTC(),
		Metadata:  meta,
	}
	mock.Seed(testNS, rec)
	return rec
}

func boolPtr(b bool) *bool { return &b }
