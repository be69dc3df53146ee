package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemod/internal/store"
)

// RecordUsage notes that a batch of memories was shown to the caller
// together. It creates one feedback event covering the batch and bumps each
// memory's retrieval counter (creating rows on first use). Returns the event
// id for a later rating.
func (e *Engine) RecordUsage(ctx context.Context, memoryIDs []string, conversationID string) (string, error) {
	if len(memoryIDs) == 0 {
		return "", fmt.Errorf("no memory ids to record")
	}

	now := time.Now().UnixMilli()
	ev := &store.FeedbackEvent{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		MemoryIDs:      memoryIDs,
		CreatedAt:      now,
	}
	if err := e.DB.CreateFeedbackEvent(ev); err != nil {
		return "", fmt.Errorf("create feedback event: %w", err)
	}
	if err := e.DB.Touch(memoryIDs, now); err != nil {
		return "", fmt.Errorf("touch memories: %w", err)
	}
	return ev.ID, nil
}

// RecordFeedback applies a delayed rating to a usage event: the event is
// updated, then every memory it references gets the rating folded into its
// effectiveness counters.
func (e *Engine) RecordFeedback(ctx context.Context, eventID string, rating store.Rating, taskCompleted bool, text string) error {
	ev, err := e.DB.GetFeedbackEvent(eventID)
	if err != nil {
		return fmt.Errorf("load feedback event: %w", err)
	}
	if ev == nil {
		return fmt.Errorf("feedback event %s not found", eventID)
	}

	now := time.Now().UnixMilli()
	if err := e.DB.SetFeedbackRating(eventID, rating, taskCompleted, text, now); err != nil {
		return err
	}
	for _, id := range ev.MemoryIDs {
		if err := e.DB.ApplyFeedback(id, rating, now); err != nil {
			return fmt.Errorf("apply feedback to %s: %w", id, err)
		}
	}
	return nil
}

// MostEffective exposes the best-performing memories for operational tooling.
func (e *Engine) MostEffective(limit int) ([]store.Effectiveness, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.DB.MostEffective(limit)
}

// LeastEffective exposes the well-sampled underperformers.
func (e *Engine) LeastEffective(limit int) ([]store.Effectiveness, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.DB.LeastEffective(limit)
}
