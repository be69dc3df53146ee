package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memory_effectiveness: retrieval and feedback counters per memory",
		SQL: `
CREATE TABLE memory_effectiveness (
    memory_id           TEXT PRIMARY KEY,
    times_retrieved     INTEGER NOT NULL DEFAULT 0,
    times_helpful       INTEGER NOT NULL DEFAULT 0,
    times_unhelpful     INTEGER NOT NULL DEFAULT 0,
    effectiveness_score REAL NOT NULL DEFAULT 0.5,
    last_used           INTEGER,
    last_feedback       INTEGER
);

CREATE INDEX idx_eff_score     ON memory_effectiveness(effectiveness_score DESC);
CREATE INDEX idx_eff_retrieved ON memory_effectiveness(times_retrieved DESC);
`,
	},
	{
		Version:     2,
		Description: "memory_usage_feedback: per-batch usage and rating events",
		SQL: `
CREATE TABLE memory_usage_feedback (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT,
    memory_ids      TEXT NOT NULL,
    rating          TEXT NOT NULL DEFAULT 'neutral' CHECK (rating IN ('positive', 'negative', 'neutral')),
    task_completed  INTEGER NOT NULL DEFAULT 0,
    feedback_text   TEXT,
    created_at      INTEGER NOT NULL,
    rated_at        INTEGER
);

CREATE INDEX idx_feedback_created ON memory_usage_feedback(created_at DESC);
CREATE INDEX idx_feedback_conv    ON memory_usage_feedback(conversation_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
