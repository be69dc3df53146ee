// Package engine implements the memory relevance, feedback, and retention
// logic: multi-factor ranking, temporal fact supersession, the effectiveness
// feedback loop, and maintenance pruning over an append-only record store.
package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mnemo-ai/mnemod/internal/memstore"
	"github.com/mnemo-ai/mnemod/internal/store"
)

// Pruning thresholds. A memory is judged unhelpful only after enough samples,
// and stale only after a month without a single retrieval.
const (
	lowEffectivenessMinRetrievals = 5
	lowEffectivenessMaxScore      = 0.2
	staleAge                      = 30 * 24 * time.Hour

	// DefaultSimilarityThreshold is the duplicate-clustering cutoff.
	DefaultSimilarityThreshold = 0.85
)

// Engine ties one namespace of the semantic store to the relational
// bookkeeping. It is cheap to construct; a process typically holds one per
// namespace over shared Store/DB handles.
type Engine struct {
	Store     memstore.Store
	DB        *store.DB
	Namespace string
	Weights   Weights

	stopCh chan struct{}
}

// New creates an Engine for a namespace using the feedback-aware profile.
// Pass a resilient-wrapped Store in production so remote outages degrade to
// empty results instead of errors.
func New(mem memstore.Store, db *store.DB, namespace string) *Engine {
	return &Engine{
		Store:     mem,
		DB:        db,
		Namespace: namespace,
		Weights:   FeedbackWeights,
		stopCh:    make(chan struct{}),
	}
}

// StartMaintenanceTimer runs a dry-run maintenance pass now and then on the
// given interval, surfacing candidate counts in the logs. Live pruning stays
// a manual operation.
func (e *Engine) StartMaintenanceTimer(interval time.Duration) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := e.RunMaintenance(ctx, true); err != nil {
			log.Error("maintenance scan failed", "namespace", e.Namespace, "error", err)
		}
	}
	run()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				run()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
}
