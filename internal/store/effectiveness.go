package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Effectiveness tracks how useful a memory has proven once retrieved.
// Rows are created lazily on first retrieval and never deleted. The score is
// a Laplace-smoothed helpful ratio starting at the 0.5 neutral prior.
type Effectiveness struct {
	MemoryID           string
	TimesRetrieved     int
	TimesHelpful       int
	TimesUnhelpful     int
	EffectivenessScore float64
	LastUsed           *int64
	LastFeedback       *int64
}

const effectivenessColumns = `memory_id, times_retrieved, times_helpful, times_unhelpful, effectiveness_score, last_used, last_feedback`

func scanEffectiveness(row interface{ Scan(...any) error }) (*Effectiveness, error) {
	var e Effectiveness
	var lastUsed, lastFeedback sql.NullInt64
	err := row.Scan(&e.MemoryID, &e.TimesRetrieved, &e.TimesHelpful, &e.TimesUnhelpful,
		&e.EffectivenessScore, &lastUsed, &lastFeedback)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		e.LastUsed = &lastUsed.Int64
	}
	if lastFeedback.Valid {
		e.LastFeedback = &lastFeedback.Int64
	}
	return &e, nil
}

// Touch increments times_retrieved for every memory id, creating missing rows
// with a count of 1 and the neutral 0.5 score.
func (db *DB) Touch(memoryIDs []string, now int64) error {
	if len(memoryIDs) == 0 {
		return nil
	}
	for _, id := range memoryIDs {
		_, err := db.Exec(`
			INSERT INTO memory_effectiveness (memory_id, times_retrieved, effectiveness_score, last_used)
			VALUES (?, 1, 0.5, ?)
			ON CONFLICT(memory_id) DO UPDATE SET
				times_retrieved = times_retrieved + 1,
				last_used = excluded.last_used
		`, id, now)
		if err != nil {
			return fmt.Errorf("touch %s: %w", id, err)
		}
	}
	return nil
}

// GetEffectiveness returns the row for a memory id, or nil if never retrieved.
func (db *DB) GetEffectiveness(memoryID string) (*Effectiveness, error) {
	row := db.QueryRow(`SELECT `+effectivenessColumns+` FROM memory_effectiveness WHERE memory_id = ?`, memoryID)
	e, err := scanEffectiveness(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get effectiveness: %w", err)
	}
	return e, nil
}

// GetEffectivenessBatch returns rows for the given ids, keyed by memory id.
// Ids without a row are simply absent from the map.
func (db *DB) GetEffectivenessBatch(memoryIDs []string) (map[string]Effectiveness, error) {
	out := make(map[string]Effectiveness, len(memoryIDs))
	if len(memoryIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(memoryIDs)), ",")
	args := make([]any, len(memoryIDs))
	for i, id := range memoryIDs {
		args[i] = id
	}

	rows, err := db.Query(`SELECT `+effectivenessColumns+` FROM memory_effectiveness WHERE memory_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch effectiveness: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEffectiveness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan effectiveness: %w", err)
		}
		out[e.MemoryID] = *e
	}
	return out, rows.Err()
}

// ApplyFeedback folds one rating into a memory's counters and recomputes the
// smoothed score: (times_helpful + 1) / (times_retrieved + 2). The padding
// keeps the score strictly inside (0, 1) and at 0.5 before any evidence.
func (db *DB) ApplyFeedback(memoryID string, rating Rating, now int64) error {
	helpful := 0
	unhelpful := 0
	switch rating {
	case RatingPositive:
		helpful = 1
	case RatingNegative:
		unhelpful = 1
	}

	_, err := db.Exec(`
		INSERT INTO memory_effectiveness (memory_id, times_helpful, times_unhelpful, effectiveness_score, last_feedback)
		VALUES (?, ?, ?, 0.5, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			times_helpful = times_helpful + excluded.times_helpful,
			times_unhelpful = times_unhelpful + excluded.times_unhelpful,
			last_feedback = excluded.last_feedback
	`, memoryID, helpful, unhelpful, now)
	if err != nil {
		return fmt.Errorf("apply feedback %s: %w", memoryID, err)
	}

	_, err = db.Exec(`
		UPDATE memory_effectiveness
		SET effectiveness_score = MAX(0.0, MIN(1.0,
			CAST(times_helpful + 1 AS REAL) / (times_retrieved + 2)))
		WHERE memory_id = ?
	`, memoryID)
	if err != nil {
		return fmt.Errorf("recompute score %s: %w", memoryID, err)
	}
	return nil
}

// MostEffective returns memories with at least two retrievals, best first.
// The retrieval floor avoids judging a memory on one noisy sample.
func (db *DB) MostEffective(limit int) ([]Effectiveness, error) {
	return db.queryEffectiveness(`
		SELECT `+effectivenessColumns+` FROM memory_effectiveness
		WHERE times_retrieved >= 2
		ORDER BY effectiveness_score DESC, times_retrieved DESC
		LIMIT ?
	`, limit)
}

// LeastEffective returns well-sampled low scorers (three or more retrievals,
// score under 0.3), worst first.
func (db *DB) LeastEffective(limit int) ([]Effectiveness, error) {
	return db.queryEffectiveness(`
		SELECT `+effectivenessColumns+` FROM memory_effectiveness
		WHERE times_retrieved >= 3 AND effectiveness_score < 0.3
		ORDER BY effectiveness_score ASC, times_retrieved DESC
		LIMIT ?
	`, limit)
}

func (db *DB) queryEffectiveness(query string, args ...any) ([]Effectiveness, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query effectiveness: %w", err)
	}
	defer rows.Close()

	var out []Effectiveness
	for rows.Next() {
		e, err := scanEffectiveness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan effectiveness: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
