package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Rating is the caller's verdict on one retrieval batch.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
	RatingNeutral  Rating = "neutral"
)

// ParseRating normalizes input to a known rating, defaulting to neutral.
func ParseRating(s string) Rating {
	switch Rating(strings.ToLower(strings.TrimSpace(s))) {
	case RatingPositive:
		return RatingPositive
	case RatingNegative:
		return RatingNegative
	default:
		return RatingNeutral
	}
}

// FeedbackEvent aggregates usage and feedback for a whole retrieval batch.
// MemoryIDs is stored as a serialized JSON array.
type FeedbackEvent struct {
	ID             string
	ConversationID string
	MemoryIDs      []string
	Rating         Rating
	TaskCompleted  bool
	FeedbackText   string
	CreatedAt      int64
	RatedAt        *int64
}

// CreateFeedbackEvent inserts a new event in the unrated state.
func (db *DB) CreateFeedbackEvent(ev *FeedbackEvent) error {
	ids, err := json.Marshal(ev.MemoryIDs)
	if err != nil {
		return fmt.Errorf("marshal memory ids: %w", err)
	}
	if ev.Rating == "" {
		ev.Rating = RatingNeutral
	}

	_, err = db.Exec(`
		INSERT INTO memory_usage_feedback (id, conversation_id, memory_ids, rating, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?)
	`, ev.ID, ev.ConversationID, string(ids), string(ev.Rating), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	return nil
}

// GetFeedbackEvent returns an event by id, or nil if not found.
func (db *DB) GetFeedbackEvent(id string) (*FeedbackEvent, error) {
	var ev FeedbackEvent
	var conversationID, feedbackText, memoryIDs sql.NullString
	var taskCompleted int
	var ratedAt sql.NullInt64
	var rating string

	err := db.QueryRow(`
		SELECT id, conversation_id, memory_ids, rating, task_completed, feedback_text, created_at, rated_at
		FROM memory_usage_feedback WHERE id = ?
	`, id).Scan(&ev.ID, &conversationID, &memoryIDs, &rating, &taskCompleted, &feedbackText, &ev.CreatedAt, &ratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback event: %w", err)
	}

	ev.ConversationID = conversationID.String
	ev.FeedbackText = feedbackText.String
	ev.Rating = ParseRating(rating)
	ev.TaskCompleted = taskCompleted != 0
	if ratedAt.Valid {
		ev.RatedAt = &ratedAt.Int64
	}
	if memoryIDs.Valid && memoryIDs.String != "" {
		// Malformed stored arrays degrade to an empty id list
		json.Unmarshal([]byte(memoryIDs.String), &ev.MemoryIDs)
	}
	return &ev, nil
}

// SetFeedbackRating records the rating on an existing event.
func (db *DB) SetFeedbackRating(id string, rating Rating, taskCompleted bool, text string, now int64) error {
	completed := 0
	if taskCompleted {
		completed = 1
	}
	res, err := db.Exec(`
		UPDATE memory_usage_feedback
		SET rating = ?, task_completed = ?, feedback_text = NULLIF(?, ''), rated_at = ?
		WHERE id = ?
	`, string(rating), completed, text, now, id)
	if err != nil {
		return fmt.Errorf("set feedback rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("feedback event %s not found", id)
	}
	return nil
}

// RecentFeedbackEvents returns the newest events, most recent first.
func (db *DB) RecentFeedbackEvents(limit int) ([]FeedbackEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id FROM memory_usage_feedback ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FeedbackEvent, 0, len(ids))
	for _, id := range ids {
		ev, err := db.GetFeedbackEvent(id)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

// Stats reports row counts for the operational surface.
func (db *DB) Stats() (effectiveness, events int, err error) {
	if err = db.QueryRow(`SELECT COUNT(*) FROM memory_effectiveness`).Scan(&effectiveness); err != nil {
		return 0, 0, fmt.Errorf("count effectiveness: %w", err)
	}
	if err = db.QueryRow(`SELECT COUNT(*) FROM memory_usage_feedback`).Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("count feedback events: %w", err)
	}
	return effectiveness, events, nil
}
