package engine

import (
	"context"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemod/internal/memstore"
)

func TestUpsertFactSupersedesPrior(t *testing.T) {
	eng, mock := testEngine(t)
	ctx := context.Background()

	first, err := eng.UpsertFact(ctx, FactInput{
		Content:  "favorite color is blue",
		Category: memstore.CategoryPreference,
		Entity:   "user",
		FactKey:  "favorite-color",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.SupersededID != "" {
		t.Errorf("first upsert superseded %s, want nothing", first.SupersededID)
	}

	second, err := eng.UpsertFact(ctx, FactInput{
		Content:  "favorite color is green",
		Category: memstore.CategoryPreference,
		Entity:   "user",
		FactKey:  "favorite-color",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.SupersededID != first.NewID {
		t.Errorf("second upsert superseded %s, want %s", second.SupersededID, first.NewID)
	}
	if second.NewID == first.NewID {
		t.Errorf("upsert reused id %s", second.NewID)
	}

	// The store should now hold both records; nothing is updated in place.
	corpus, err := mock.List(ctx, testNS)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(corpus) != 2 {
		t.Fatalf("corpus has %d records, want 2", len(corpus))
	}
	for _, r := range corpus {
		if r.ID == first.NewID && r.Metadata.SupersedesID != "" {
			t.Errorf("old record gained a supersedes pointer: %s", r.Metadata.SupersedesID)
		}
		if r.ID == second.NewID && r.Metadata.SupersedesID != first.NewID {
			t.Errorf("new record points at %s, want %s", r.Metadata.SupersedesID, first.NewID)
		}
	}
}

func TestUpsertFactFollowsChain(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	in := FactInput{Category: memstore.CategoryPreference, Entity: "user", FactKey: "editor"}

	in.Content = "uses emacs"
	first, err := eng.UpsertFact(ctx, in)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	in.Content = "uses vim"
	second, err := eng.UpsertFact(ctx, in)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	in.Content = "uses helix"
	third, err := eng.UpsertFact(ctx, in)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if second.SupersededID != first.NewID {
		t.Errorf("second superseded %s, want %s", second.SupersededID, first.NewID)
	}
	if third.SupersededID != second.NewID {
		t.Errorf("third superseded %s, want the chain head %s", third.SupersededID, second.NewID)
	}
}

func TestUpsertFactWithoutIdentityAppends(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	a, err := eng.UpsertFact(ctx, FactInput{Content: "loose observation"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, err := eng.UpsertFact(ctx, FactInput{Content: "loose observation"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if a.SupersededID != "" || b.SupersededID != "" {
		t.Errorf("identity-free upserts superseded (%q, %q), want plain appends", a.SupersededID, b.SupersededID)
	}
}

func TestUpsertFactRejectsEmptyContent(t *testing.T) {
	eng, _ := testEngine(t)

	if _, err := eng.UpsertFact(context.Background(), FactInput{Content: "   "}); err == nil {
		t.Fatal("expected error for blank content")
	}
}

func TestUpsertFactCategoryScoped(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	if _, err := eng.UpsertFact(ctx, FactInput{
		Content:  "deploys via blue-green",
		Category: memstore.CategoryWorkflowPattern,
		FactKey:  "deploy-strategy",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same key, different category: no supersession across categories.
	res, err := eng.UpsertFact(ctx, FactInput{
		Content:  "deployment history note",
		Category: memstore.CategoryTaskHistory,
		FactKey:  "deploy-strategy",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.SupersededID != "" {
		t.Errorf("cross-category upsert superseded %s", res.SupersededID)
	}
}

func TestCurrentFactReturnsLatestVersion(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	if _, err := eng.UpsertFact(ctx, FactInput{
		Content:  "works at Initech",
		Category: memstore.CategoryEntityFact,
		Entity:   "user",
		FactKey:  "employer",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := eng.UpsertFact(ctx, FactInput{
		Content:  "works at Initrode",
		Category: memstore.CategoryEntityFact,
		Entity:   "user",
		FactKey:  "employer",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := eng.CurrentFact(ctx, "employer", memstore.CategoryEntityFact)
	if err != nil {
		t.Fatalf("CurrentFact: %v", err)
	}
	if got == nil {
		t.Fatal("CurrentFact returned nil")
	}
	if got.ID != second.NewID {
		t.Errorf("current fact = %s (%q), want %s", got.ID, got.Content, second.NewID)
	}
	if got.Content != "works at Initrode" {
		t.Errorf("current fact content = %q", got.Content)
	}
}

func TestCurrentFactFiltersExpiredAndMissing(t *testing.T) {
	eng, mock := testEngine(t)
	ctx := context.Background()

	got, err := eng.CurrentFact(ctx, "nothing here", "")
	if err != nil {
		t.Fatalf("CurrentFact: %v", err)
	}
	if got != nil {
		t.Errorf("empty corpus returned %+v", got)
	}

	expired := time.Now().Add(-time.Hour)
	seed(mock, "old-plan", "on the starter plan", 48*time.Hour, memstore.Metadata{
		Category:   memstore.CategoryEntityFact,
		FactKey:    "plan",
		ValidUntil: &expired,
	})

	got, err = eng.CurrentFact(ctx, "plan", memstore.CategoryEntityFact)
	if err != nil {
		t.Fatalf("CurrentFact: %v", err)
	}
	if got != nil {
		t.Errorf("expired fact returned as current: %+v", got)
	}
}

func TestFactHistoryChronological(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cities := []string{"Lisbon", "Berlin", "Oslo"}
	for i, city := range cities {
		from := base.AddDate(0, i, 0)
		if _, err := eng.UpsertFact(ctx, FactInput{
			Content:   "lives in " + city,
			Category:  memstore.CategoryEntityFact,
			Entity:    "user",
			FactKey:   "home-city",
			ValidFrom: &from,
		}); err != nil {
			t.Fatalf("upsert %s: %v", city, err)
		}
	}

	history, err := eng.FactHistory(ctx, "home-city", memstore.CategoryEntityFact)
	if err != nil {
		t.Fatalf("FactHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}
	for i, want := range []string{"lives in Lisbon", "lives in Berlin", "lives in Oslo"} {
		if history[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Content, want)
		}
	}
	for i := 1; i < len(history); i++ {
		if !history[i-1].EffectiveValidFrom().Before(history[i].EffectiveValidFrom()) {
			t.Errorf("history not strictly increasing at %d", i)
		}
	}
}
