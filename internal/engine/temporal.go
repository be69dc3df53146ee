package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mnemo-ai/mnemod/internal/memstore"
)

// factSearchLimit bounds how many search hits the temporal layer scans when
// looking for a fact's records.
const factSearchLimit = 50

// FactInput describes a fact value to upsert. Entity and FactKey identify
// which prior record the new one supersedes; with both empty the write is a
// plain append.
type FactInput struct {
	Content   string
	Category  memstore.Category
	Entity    string
	FactKey   string
	ValidFrom *time.Time
}

// UpsertResult reports the new record's id and, when a prior current record
// matched, the id it supersedes.
type UpsertResult struct {
	NewID        string `json:"new_id"`
	SupersededID string `json:"superseded_id,omitempty"`
}

// UpsertFact writes a new current record for a fact that changes over time.
// The underlying store has no in-place update, so superseding is represented
// by the new record pointing backward; the old record's own flag is untouched
// and maintenance reconciles the chain. No guard exists against two
// concurrent upserts claiming the same predecessor: this layer assumes a
// single writer.
func (e *Engine) UpsertFact(ctx context.Context, in FactInput) (UpsertResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return UpsertResult{}, fmt.Errorf("fact content required")
	}
	category := in.Category
	if category == "" {
		category = memstore.CategoryUncategorized
	}

	supersededID := e.findCurrentMatch(ctx, in, category)

	now := time.Now().UTC()
	validFrom := now
	if in.ValidFrom != nil {
		validFrom = in.ValidFrom.UTC()
	}
	current := true
	meta := memstore.Metadata{
		SchemaVersion: memstore.MetadataSchemaVersion,
		Category:      category,
		Source:        "fact-upsert",
		Entity:        in.Entity,
		FactKey:       in.FactKey,
		ValidFrom:     &validFrom,
		IngestedAt:    &now,
		SupersedesID:  supersededID,
		IsCurrent:     &current,
		FactType:      memstore.FactDynamic,
	}

	id, err := e.Store.Add(ctx, e.Namespace, in.Content, meta)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("write fact: %w", err)
	}
	if supersededID != "" {
		log.Info("fact superseded", "namespace", e.Namespace, "new", id, "old", supersededID)
	}
	return UpsertResult{NewID: id, SupersededID: supersededID}, nil
}

// findCurrentMatch looks for an existing current record with the same
// category and entity or fact key, skipping records a newer hit already
// points back at so a chain's head wins. Returns "" when nothing matches or
// no identity was given.
func (e *Engine) findCurrentMatch(ctx context.Context, in FactInput, category memstore.Category) string {
	if in.Entity == "" && in.FactKey == "" {
		return ""
	}

	query := in.FactKey
	if query == "" {
		query = in.Entity
	}
	hits, err := e.Store.Search(ctx, e.Namespace, query, factSearchLimit)
	if err != nil {
		log.Warn("supersession lookup failed, writing without predecessor", "error", err)
		return ""
	}

	superseded := make(map[string]bool)
	for _, h := range hits {
		if id := h.Metadata.SupersedesID; id != "" {
			superseded[id] = true
		}
	}

	for _, h := range hits {
		md := h.Metadata
		if !md.Current() || md.Tombstone() || superseded[h.ID] {
			continue
		}
		if md.Category != category {
			continue
		}
		if in.FactKey != "" && md.FactKey == in.FactKey {
			return h.ID
		}
		if in.Entity != "" && strings.EqualFold(md.Entity, in.Entity) {
			return h.ID
		}
	}
	return ""
}

// CurrentFact returns the first search hit that is current, matches the
// category filter, and is still inside its validity window. The store's own
// ordering is kept; this does not re-rank. A hit another hit points back at
// is skipped even if its own flag was never flipped — supersession is only
// recorded on the newer record. Nil means no current fact.
func (e *Engine) CurrentFact(ctx context.Context, query string, category memstore.Category) (*memstore.Record, error) {
	hits, err := e.Store.Search(ctx, e.Namespace, query, factSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}

	superseded := make(map[string]bool)
	for _, h := range hits {
		if id := h.Metadata.SupersedesID; id != "" {
			superseded[id] = true
		}
	}

	now := time.Now()
	for _, h := range hits {
		md := h.Metadata
		if !md.Current() || md.Tombstone() || superseded[h.ID] {
			continue
		}
		if category != "" && md.Category != category {
			continue
		}
		if md.ValidUntil != nil && !now.Before(*md.ValidUntil) {
			continue
		}
		rec := h
		return &rec, nil
	}
	return nil, nil
}

// FactHistory returns every matching record in chronological order,
// answering "how did this fact change over time". Ordering is by ValidFrom,
// falling back to creation time for records without one.
func (e *Engine) FactHistory(ctx context.Context, query string, category memstore.Category) ([]memstore.Record, error) {
	hits, err := e.Store.Search(ctx, e.Namespace, query, factSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}

	var history []memstore.Record
	for _, h := range hits {
		if h.Metadata.Tombstone() {
			continue
		}
		if category != "" && h.Metadata.Category != category {
			continue
		}
		history = append(history, h)
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].EffectiveValidFrom().Before(history[j].EffectiveValidFrom())
	})
	return history, nil
}
