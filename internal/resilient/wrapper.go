package resilient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemod/internal/memstore"
)

const (
	maxAttempts = 3
	baseDelay   = 1 * time.Second
	maxDelay    = 10 * time.Second
)

// Store wraps a memstore.Store with retry and backoff. Every operation is
// attempted up to three times (1s then 2s between attempts, doubling, capped
// at 10s). On exhaustion the failure is queued and the caller receives the
// zero result with a nil error: availability over correctness, the
// conversation degrades to "no memories found" instead of breaking.
type Store struct {
	inner memstore.Store
	queue *Queue

	// sleep is swapped out in tests so backoff does not stall the suite.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wraps inner with retry/backoff reporting into queue.
func New(inner memstore.Store, queue *Queue) *Store {
	return &Store{
		inner: inner,
		queue: queue,
		sleep: sleepCtx,
	}
}

// Queue returns the failure queue for inspection.
func (s *Store) Queue() *Queue { return s.queue }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// do runs fn with the retry budget. It returns the zero value after
// exhaustion, queuing a FailedOp snapshot for later replay.
func do[T any](ctx context.Context, s *Store, kind OpKind, namespace, payload string, fn func(context.Context) (T, error)) T {
	var zero T
	var lastErr error

	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v
		}
		lastErr = err
		log.Warn("memory operation failed", "op", kind, "namespace", namespace, "attempt", attempt, "error", err)

		if attempt < maxAttempts {
			if err := s.sleep(ctx, delay); err != nil {
				break
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	log.Error("memory operation exhausted retries", "op", kind, "namespace", namespace, "error", lastErr)
	s.queue.Push(FailedOp{
		ID:        uuid.NewString(),
		Kind:      kind,
		Namespace: namespace,
		Payload:   payload,
		Err:       lastErr.Error(),
		Timestamp: time.Now().UTC(),
		Retries:   maxAttempts,
	})
	return zero
}

type addPayload struct {
	Content  string            `json:"content"`
	Metadata memstore.Metadata `json:"metadata"`
}

type searchPayload struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Add appends a record, degrading to an empty id on persistent failure.
func (s *Store) Add(ctx context.Context, namespace, content string, meta memstore.Metadata) (string, error) {
	payload, _ := json.Marshal(addPayload{Content: content, Metadata: meta})
	id := do(ctx, s, OpAdd, namespace, string(payload), func(ctx context.Context) (string, error) {
		return s.inner.Add(ctx, namespace, content, meta)
	})
	return id, nil
}

// Search returns ranked results, degrading to none on persistent failure.
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]memstore.Record, error) {
	payload, _ := json.Marshal(searchPayload{Query: query, Limit: limit})
	records := do(ctx, s, OpSearch, namespace, string(payload), func(ctx context.Context) ([]memstore.Record, error) {
		return s.inner.Search(ctx, namespace, query, limit)
	})
	return records, nil
}

// List returns the full corpus, degrading to empty on persistent failure.
func (s *Store) List(ctx context.Context, namespace string) ([]memstore.Record, error) {
	records := do(ctx, s, OpList, namespace, "", func(ctx context.Context) ([]memstore.Record, error) {
		return s.inner.List(ctx, namespace)
	})
	return records, nil
}

// Replay re-attempts every queued failure once, outside the original retry
// budget. A success removes the entry; a failure leaves it queued without
// touching its retry count. Returns how many entries were cleared.
func (s *Store) Replay(ctx context.Context) int {
	replayed := 0
	for _, op := range s.queue.Failed() {
		if err := s.replayOne(ctx, op); err != nil {
			log.Warn("replay failed", "op", op.Kind, "id", op.ID, "error", err)
			continue
		}
		s.queue.Remove(op.ID)
		replayed++
	}
	return replayed
}

func (s *Store) replayOne(ctx context.Context, op FailedOp) error {
	switch op.Kind {
	case OpAdd:
		var p addPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return err
		}
		_, err := s.inner.Add(ctx, op.Namespace, p.Content, p.Metadata)
		return err
	case OpSearch:
		var p searchPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return err
		}
		_, err := s.inner.Search(ctx, op.Namespace, p.Query, p.Limit)
		return err
	case OpList:
		_, err := s.inner.List(ctx, op.Namespace)
		return err
	}
	return nil
}
