package resilient

import (
	"fmt"
	"testing"
)

func TestQueueEvictsOldestAtCapacity(t *testing.T) {
	q := NewQueue()
	for i := 0; i < QueueCapacity+5; i++ {
		q.Push(FailedOp{ID: fmt.Sprintf("op-%d", i), Kind: OpAdd})
	}

	if q.Len() != QueueCapacity {
		t.Fatalf("expected %d entries, got %d", QueueCapacity, q.Len())
	}
	failed := q.Failed()
	if failed[0].ID != "op-5" {
		t.Errorf("expected oldest surviving entry op-5, got %s", failed[0].ID)
	}
	if failed[len(failed)-1].ID != fmt.Sprintf("op-%d", QueueCapacity+4) {
		t.Errorf("expected newest entry last, got %s", failed[len(failed)-1].ID)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	q.Push(FailedOp{ID: "a"})
	q.Push(FailedOp{ID: "b"})
	q.Push(FailedOp{ID: "c"})

	q.Remove("b")
	if q.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", q.Len())
	}
	for _, op := range q.Failed() {
		if op.ID == "b" {
			t.Error("removed entry still present")
		}
	}

	// Removing a missing id is a no-op
	q.Remove("missing")
	if q.Len() != 2 {
		t.Errorf("expected 2 entries after no-op remove, got %d", q.Len())
	}
}
