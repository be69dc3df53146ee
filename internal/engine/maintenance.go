package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mnemo-ai/mnemod/internal/memstore"
)

// CandidateKind names the pruning bucket a record fell into.
type CandidateKind string

const (
	CandidateSuperseded       CandidateKind = "superseded"
	CandidateLowEffectiveness CandidateKind = "low-effectiveness"
	CandidateStale            CandidateKind = "stale"
)

// Candidate is a record eligible for archival, with the reason why.
type Candidate struct {
	Record memstore.Record `json:"record"`
	Kind   CandidateKind   `json:"kind"`
	Reason string          `json:"reason"`
}

// CandidateSet partitions the corpus into the three pruning buckets.
// Buckets never overlap; a record lands in the first one that claims it.
type CandidateSet struct {
	Analyzed         int         `json:"analyzed"`
	Superseded       []Candidate `json:"superseded"`
	LowEffectiveness []Candidate `json:"low_effectiveness"`
	Stale            []Candidate `json:"stale"`
}

// Total returns the candidate count across all buckets.
func (c *CandidateSet) Total() int {
	return len(c.Superseded) + len(c.LowEffectiveness) + len(c.Stale)
}

func (c *CandidateSet) all() []Candidate {
	out := make([]Candidate, 0, c.Total())
	out = append(out, c.Superseded...)
	out = append(out, c.LowEffectiveness...)
	out = append(out, c.Stale...)
	return out
}

// Report summarizes one maintenance run. Individual archival failures land
// in Errors without aborting the run.
type Report struct {
	Analyzed     int      `json:"analyzed"`
	Pruned       int      `json:"pruned"`
	Consolidated int      `json:"consolidated"`
	Errors       []string `json:"errors,omitempty"`
}

// IdentifyCandidates walks the full corpus and partitions prunable records
// into buckets, evaluated in order: superseded (flagged non-current, or a
// newer record points back at it), low-effectiveness (enough samples, score
// under the floor), stale (over a month old and never retrieved). Tombstones
// and records already covered by a tombstone are skipped entirely, so
// repeated runs do not re-archive the archive.
func (e *Engine) IdentifyCandidates(ctx context.Context) (*CandidateSet, error) {
	corpus, err := e.Store.List(ctx, e.Namespace)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	archived := make(map[string]bool)   // ids a tombstone points at
	superseded := make(map[string]bool) // ids a newer record supersedes
	for _, r := range corpus {
		if id := r.Metadata.ArchivesID; id != "" {
			archived[id] = true
		}
		if id := r.Metadata.SupersedesID; id != "" {
			superseded[id] = true
		}
	}

	ids := make([]string, 0, len(corpus))
	for _, r := range corpus {
		ids = append(ids, r.ID)
	}
	eff, err := e.DB.GetEffectivenessBatch(ids)
	if err != nil {
		return nil, fmt.Errorf("effectiveness batch: %w", err)
	}

	now := time.Now()
	set := &CandidateSet{}
	for _, r := range corpus {
		if r.Metadata.Tombstone() || archived[r.ID] {
			continue
		}
		set.Analyzed++

		if !r.Metadata.Current() || superseded[r.ID] {
			set.Superseded = append(set.Superseded, Candidate{
				Record: r,
				Kind:   CandidateSuperseded,
				Reason: "superseded by a newer record",
			})
			continue
		}

		row, tracked := eff[r.ID]
		if tracked && row.TimesRetrieved >= lowEffectivenessMinRetrievals && row.EffectivenessScore < lowEffectivenessMaxScore {
			set.LowEffectiveness = append(set.LowEffectiveness, Candidate{
				Record: r,
				Kind:   CandidateLowEffectiveness,
				Reason: fmt.Sprintf("effectiveness %.2f after %d retrievals", row.EffectivenessScore, row.TimesRetrieved),
			})
			continue
		}

		if now.Sub(r.CreatedAt) > staleAge && (!tracked || row.TimesRetrieved == 0) {
			set.Stale = append(set.Stale, Candidate{
				Record: r,
				Kind:   CandidateStale,
				Reason: "over 30 days old and never retrieved",
			})
		}
	}
	return set, nil
}

// FindSimilar clusters near-duplicate records. Each not-yet-grouped record is
// searched against the store by its own text; any other ungrouped result
// whose similarity clears the threshold joins its group. Grouped ids are
// marked processed so no record appears in two groups. Only groups of two or
// more are returned.
func (e *Engine) FindSimilar(ctx context.Context, threshold float64) ([][]memstore.Record, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	corpus, err := e.Store.List(ctx, e.Namespace)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	archived := make(map[string]bool)
	eligible := make(map[string]bool)
	for _, r := range corpus {
		if id := r.Metadata.ArchivesID; id != "" {
			archived[id] = true
		}
	}
	for _, r := range corpus {
		if !r.Metadata.Tombstone() && !archived[r.ID] {
			eligible[r.ID] = true
		}
	}

	processed := make(map[string]bool)
	var groups [][]memstore.Record

	for _, r := range corpus {
		if !eligible[r.ID] || processed[r.ID] {
			continue
		}
		processed[r.ID] = true

		hits, err := e.Store.Search(ctx, e.Namespace, r.Content, 20)
		if err != nil {
			log.Warn("similarity search failed", "id", r.ID, "error", err)
			continue
		}

		group := []memstore.Record{r}
		for _, h := range hits {
			if h.ID == r.ID || processed[h.ID] || !eligible[h.ID] {
				continue
			}
			if h.Score >= threshold {
				processed[h.ID] = true
				group = append(group, h)
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// Archive appends a tombstone record marking id as archived. Nothing is
// deleted; the store is append-only by contract. Returns the tombstone's id.
func (e *Engine) Archive(ctx context.Context, id, reason string) (string, error) {
	now := time.Now().UTC()
	notCurrent := false
	meta := memstore.Metadata{
		SchemaVersion: memstore.MetadataSchemaVersion,
		Category:      memstore.CategoryTaskHistory,
		Source:        "maintenance",
		IngestedAt:    &now,
		IsCurrent:     &notCurrent,
		ArchivesID:    id,
		ArchiveReason: reason,
	}
	content := fmt.Sprintf("Archived memory %s: %s", id, reason)

	tombID, err := e.Store.Add(ctx, e.Namespace, content, meta)
	if err != nil {
		return "", fmt.Errorf("write tombstone for %s: %w", id, err)
	}
	if tombID == "" {
		return "", fmt.Errorf("tombstone for %s not written", id)
	}
	return tombID, nil
}

// RunMaintenance prunes the corpus. With dryRun it only counts candidates
// and potential consolidations, performing no writes. A live run archives
// every bucket candidate, then for each duplicate group keeps the most
// recently created record and archives the rest. Failures are collected per
// item; the batch always continues.
func (e *Engine) RunMaintenance(ctx context.Context, dryRun bool) (*Report, error) {
	candidates, err := e.IdentifyCandidates(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := e.FindSimilar(ctx, DefaultSimilarityThreshold)
	if err != nil {
		return nil, err
	}

	report := &Report{Analyzed: candidates.Analyzed}

	if dryRun {
		report.Pruned = candidates.Total()
		for _, g := range groups {
			report.Consolidated += len(g) - 1
		}
		log.Info("maintenance dry run", "namespace", e.Namespace,
			"analyzed", report.Analyzed, "candidates", report.Pruned, "duplicates", report.Consolidated)
		return report, nil
	}

	for _, c := range candidates.all() {
		if _, err := e.Archive(ctx, c.Record.ID, string(c.Kind)+": "+c.Reason); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Pruned++
	}

	for _, group := range groups {
		keep := group[0]
		for _, r := range group[1:] {
			if r.CreatedAt.After(keep.CreatedAt) {
				keep = r
			}
		}
		for _, r := range group {
			if r.ID == keep.ID {
				continue
			}
			if _, err := e.Archive(ctx, r.ID, "duplicate of "+keep.ID); err != nil {
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			report.Consolidated++
		}
	}

	log.Info("maintenance complete", "namespace", e.Namespace,
		"analyzed", report.Analyzed, "pruned", report.Pruned,
		"consolidated", report.Consolidated, "errors", len(report.Errors))
	return report, nil
}
