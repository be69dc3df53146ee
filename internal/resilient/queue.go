// Package resilient decorates a memstore.Store with retry, backoff, and a
// bounded failure queue. Exhausted operations degrade to empty results so a
// memory outage never breaks the caller's conversation flow.
package resilient

import (
	"sync"
	"time"
)

// OpKind identifies which store operation failed.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpSearch OpKind = "search"
	OpList   OpKind = "list"
)

// FailedOp is a diagnostic snapshot of an operation that exhausted its
// retries. It lives only in the in-process queue and is lost on restart.
type FailedOp struct {
	ID        string    `json:"id"`
	Kind      OpKind    `json:"kind"`
	Namespace string    `json:"namespace"`
	Payload   string    `json:"payload"`
	Err       string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Retries   int       `json:"retries"`
}

// QueueCapacity bounds the failure queue; the oldest entry is evicted when a
// new failure arrives at capacity.
const QueueCapacity = 100

// Queue is a mutex-guarded FIFO of failed operations.
type Queue struct {
	mu  sync.Mutex
	ops []FailedOp
	cap int
}

// NewQueue creates a queue with the default capacity.
func NewQueue() *Queue {
	return &Queue{cap: QueueCapacity}
}

// Push appends op, evicting the oldest entry at capacity.
func (q *Queue) Push(op FailedOp) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) >= q.cap {
		q.ops = q.ops[1:]
	}
	q.ops = append(q.ops, op)
}

// Remove deletes the entry with the given id, if present.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return
		}
	}
}

// Failed returns a snapshot of the queued failures, oldest first.
func (q *Queue) Failed() []FailedOp {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]FailedOp, len(q.ops))
	copy(out, q.ops)
	return out
}

// Len returns the number of queued failures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}
