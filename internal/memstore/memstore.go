// Package memstore defines the semantic memory service surface: immutable
// memory records, their typed metadata, and the Store interface the rest of
// the system talks through. The service is append-only by contract — records
// are never updated or deleted, only superseded or tombstoned by newer
// records.
package memstore

import (
	"context"
	"strings"
	"time"
)

// Category classifies what kind of knowledge a record holds.
type Category string

const (
	CategoryPreference           Category = "preference"
	CategoryImplementationDetail Category = "implementation-detail"
	CategoryTroubleshooting      Category = "troubleshooting"
	CategoryComponentContext     Category = "component-context"
	CategoryProjectOverview      Category = "project-overview"
	CategoryTaskHistory          Category = "task-history"
	CategoryEntityFact           Category = "entity-fact"
	CategoryConversationInsight  Category = "conversation-insight"
	CategoryWorkflowPattern      Category = "workflow-pattern"
	CategoryUncategorized        Category = "uncategorized"
)

var knownCategories = map[Category]bool{
	CategoryPreference:           true,
	CategoryImplementationDetail: true,
	CategoryTroubleshooting:      true,
	CategoryComponentContext:     true,
	CategoryProjectOverview:      true,
	CategoryTaskHistory:          true,
	CategoryEntityFact:           true,
	CategoryConversationInsight:  true,
	CategoryWorkflowPattern:      true,
}

// NormalizeCategory maps arbitrary input to a known category.
// Unknown or empty values become "uncategorized" rather than an error.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if knownCategories[c] {
		return c
	}
	return CategoryUncategorized
}

// FactType distinguishes facts that change over time from ones that don't.
type FactType string

const (
	FactStatic  FactType = "static"
	FactDynamic FactType = "dynamic"
)

// MetadataSchemaVersion is stamped onto every record written by this build.
const MetadataSchemaVersion = 1

// Metadata is the typed, versioned metadata bag attached to a record.
// All fields are optional; readers default anything missing or malformed.
type Metadata struct {
	SchemaVersion   int      `json:"schema_version,omitempty"`
	Category        Category `json:"category,omitempty"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	Source          string   `json:"source,omitempty"`
	RelatedEntities []string `json:"related_entities,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	// Temporal fact fields.
	Entity       string     `json:"entity,omitempty"`
	FactKey      string     `json:"fact_key,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	IngestedAt   *time.Time `json:"ingested_at,omitempty"`
	SupersedesID string     `json:"supersedes_id,omitempty"`
	IsCurrent    *bool      `json:"is_current,omitempty"`
	FactType     FactType   `json:"fact_type,omitempty"`

	// Tombstone fields, set only on archival records.
	ArchivesID    string `json:"archives_id,omitempty"`
	ArchiveReason string `json:"archive_reason,omitempty"`
}

// Current reports whether the record is still the live version of its fact.
// An unset flag means current.
func (m Metadata) Current() bool {
	return m.IsCurrent == nil || *m.IsCurrent
}

// Tombstone reports whether the record is an archival marker for another record.
func (m Metadata) Tombstone() bool {
	return m.ArchivesID != ""
}

// ValidAt reports whether the record's validity window covers t.
func (m Metadata) ValidAt(t time.Time) bool {
	if m.ValidFrom != nil && t.Before(*m.ValidFrom) {
		return false
	}
	if m.ValidUntil != nil && !t.Before(*m.ValidUntil) {
		return false
	}
	return true
}

// Record is one immutable unit of remembered text plus metadata.
// Score is only populated on search results and holds the store's own
// similarity score in [0, 1].
type Record struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// EffectiveValidFrom returns ValidFrom when set, falling back to CreatedAt.
func (r Record) EffectiveValidFrom() time.Time {
	if r.Metadata.ValidFrom != nil {
		return *r.Metadata.ValidFrom
	}
	return r.CreatedAt
}

// Store is the narrow surface of the semantic memory service. Implementations
// are namespace-scoped per call; the same store serves user memories and the
// assistant's self-knowledge under different namespaces.
type Store interface {
	// Add appends a new record and returns its assigned id.
	Add(ctx context.Context, namespace, content string, meta Metadata) (string, error)
	// Search returns records ranked by the store's own relevance, best first.
	Search(ctx context.Context, namespace, query string, limit int) ([]Record, error)
	// List returns the full unranked corpus for a namespace.
	List(ctx context.Context, namespace string) ([]Record, error)
}
