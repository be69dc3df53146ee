package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mnemo-ai/mnemod/internal/memstore"
)

// Weights is a scoring profile over the four relevance signals.
type Weights struct {
	Semantic      float64 `json:"semantic"`
	Recency       float64 `json:"recency"`
	Importance    float64 `json:"importance"`
	Effectiveness float64 `json:"effectiveness"`
}

// BaseWeights scores without feedback history, for fresh corpora where the
// effectiveness loop has nothing to say yet.
var BaseWeights = Weights{Semantic: 0.60, Recency: 0.25, Importance: 0.15}

// FeedbackWeights folds the effectiveness signal in once the loop is populated.
var FeedbackWeights = Weights{Semantic: 0.45, Recency: 0.20, Importance: 0.15, Effectiveness: 0.20}

// ProfileWeights resolves a profile name; anything but "base" selects the
// feedback-aware profile.
func ProfileWeights(profile string) Weights {
	if profile == "base" {
		return BaseWeights
	}
	return FeedbackWeights
}

const (
	// recencyWindow is the horizon past which the recency signal floors at 0.
	recencyWindow = 7 * 24 * time.Hour

	// importanceScore is a constant placeholder: no per-record importance is
	// differentiated yet.
	importanceScore = 0.5

	// effectivenessDefault applies to records never retrieved;
	// effectivenessBoosted applies when the id shows up in the top
	// most-effective list without having its own row (migrated data).
	effectivenessDefault = 0.5
	effectivenessBoosted = 0.7

	// mostEffectiveWindow is how deep the boost list looks.
	mostEffectiveWindow = 100
)

// Ranked is a record with its combined score and per-signal breakdown.
type Ranked struct {
	Record memstore.Record `json:"record"`
	Score  float64         `json:"score"`

	Semantic      float64 `json:"semantic"`
	Recency       float64 `json:"recency"`
	Importance    float64 `json:"importance"`
	Effectiveness float64 `json:"effectiveness"`
}

// Rank returns the memories most relevant to query, best first. It blends
// the remote store's semantic ranking with recency, a constant importance
// placeholder, and the learned effectiveness score. Records absent from the
// search hits still rank on the remaining signals.
func (e *Engine) Rank(ctx context.Context, query string, limit int) ([]Ranked, error) {
	return e.RankWith(ctx, query, limit, e.Weights)
}

// RankWith ranks under an explicit scoring profile.
func (e *Engine) RankWith(ctx context.Context, query string, limit int, weights Weights) ([]Ranked, error) {
	if limit <= 0 {
		limit = 10
	}

	searchLimit := limit * 3
	if searchLimit < 10 {
		searchLimit = 10
	}

	// Fetch the ranked hits and the full corpus concurrently.
	var (
		hits      []memstore.Record
		searchErr error
		done      = make(chan struct{})
	)
	go func() {
		defer close(done)
		hits, searchErr = e.Store.Search(ctx, e.Namespace, query, searchLimit)
	}()

	corpus, err := e.Store.List(ctx, e.Namespace)
	<-done
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	if searchErr != nil {
		return nil, fmt.Errorf("search: %w", searchErr)
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	semantic := semanticScores(hits)

	ids := make([]string, 0, len(corpus))
	for _, r := range corpus {
		ids = append(ids, r.ID)
	}
	eff, err := e.DB.GetEffectivenessBatch(ids)
	if err != nil {
		return nil, fmt.Errorf("effectiveness batch: %w", err)
	}
	boosted, err := e.mostEffectiveSet()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ranked := make([]Ranked, 0, len(corpus))
	for _, rec := range corpus {
		if rec.Metadata.Tombstone() {
			continue
		}

		r := Ranked{
			Record:     rec,
			Semantic:   semantic[rec.ID],
			Recency:    recencyScore(rec.CreatedAt, now),
			Importance: importanceScore,
		}
		if row, ok := eff[rec.ID]; ok {
			r.Effectiveness = row.EffectivenessScore
		} else if boosted[rec.ID] {
			r.Effectiveness = effectivenessBoosted
		} else {
			r.Effectiveness = effectivenessDefault
		}

		r.Score = weights.Semantic*r.Semantic + weights.Recency*r.Recency +
			weights.Importance*r.Importance + weights.Effectiveness*r.Effectiveness
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Record.CreatedAt.After(ranked[j].Record.CreatedAt)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// semanticScores assigns rank-position scores: the best hit gets 1, the
// last gets 1/len. Records outside the hit list get no semantic credit.
func semanticScores(hits []memstore.Record) map[string]float64 {
	scores := make(map[string]float64, len(hits))
	n := float64(len(hits))
	for i, h := range hits {
		if _, seen := scores[h.ID]; seen {
			continue
		}
		scores[h.ID] = 1 - float64(i)/n
	}
	return scores
}

// recencyScore decays linearly from 1 at creation to 0 at one week old.
func recencyScore(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	score := 1 - float64(age)/float64(recencyWindow)
	if score < 0 {
		return 0
	}
	return score
}

func (e *Engine) mostEffectiveSet() (map[string]bool, error) {
	top, err := e.DB.MostEffective(mostEffectiveWindow)
	if err != nil {
		return nil, fmt.Errorf("most effective: %w", err)
	}
	set := make(map[string]bool, len(top))
	for _, row := range top {
		set[row.MemoryID] = true
	}
	return set, nil
}
