package store

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTouchUpsertSemantics(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	if err := db.Touch([]string{"m1", "m2"}, now); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := db.Touch([]string{"m1"}, now+1); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	e1, err := db.GetEffectiveness("m1")
	if err != nil {
		t.Fatalf("GetEffectiveness: %v", err)
	}
	if e1 == nil || e1.TimesRetrieved != 2 {
		t.Errorf("m1 expected 2 retrievals, got %+v", e1)
	}
	if e1.EffectivenessScore != 0.5 {
		t.Errorf("m1 expected neutral prior 0.5, got %f", e1.EffectivenessScore)
	}
	if e1.LastUsed == nil || *e1.LastUsed != now+1 {
		t.Errorf("m1 last_used not updated: %+v", e1.LastUsed)
	}

	e2, _ := db.GetEffectiveness("m2")
	if e2 == nil || e2.TimesRetrieved != 1 {
		t.Errorf("m2 expected 1 retrieval, got %+v", e2)
	}

	// Never-retrieved id has no row
	e3, err := db.GetEffectiveness("m3")
	if err != nil {
		t.Fatalf("GetEffectiveness: %v", err)
	}
	if e3 != nil {
		t.Errorf("expected nil for unknown id, got %+v", e3)
	}
}

func TestApplyFeedbackScoreStaysInRange(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	// Pathological sequences must never push the score outside [0, 1].
	sequences := [][]Rating{
		{RatingPositive, RatingPositive, RatingPositive, RatingPositive, RatingPositive},
		{RatingNegative, RatingNegative, RatingNegative, RatingNegative, RatingNegative},
		{RatingPositive, RatingNegative, RatingNeutral, RatingPositive, RatingNegative},
		{RatingNeutral, RatingNeutral},
	}

	for i, seq := range sequences {
		id := string(rune('a' + i))
		db.Touch([]string{id}, now)
		for _, rating := range seq {
			if err := db.ApplyFeedback(id, rating, now); err != nil {
				t.Fatalf("ApplyFeedback: %v", err)
			}
			e, err := db.GetEffectiveness(id)
			if err != nil || e == nil {
				t.Fatalf("GetEffectiveness: %v", err)
			}
			if e.EffectivenessScore < 0 || e.EffectivenessScore > 1 {
				t.Errorf("score out of range after %v: %f", seq, e.EffectivenessScore)
			}
		}
	}
}

func TestApplyFeedbackLaplaceSmoothing(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	// 4 retrievals, 3 helpful: score = (3+1)/(4+2)
	db.Touch([]string{"m"}, now)
	db.Touch([]string{"m"}, now)
	db.Touch([]string{"m"}, now)
	db.Touch([]string{"m"}, now)
	db.ApplyFeedback("m", RatingPositive, now)
	db.ApplyFeedback("m", RatingPositive, now)
	db.ApplyFeedback("m", RatingPositive, now)

	e, _ := db.GetEffectiveness("m")
	want := 4.0 / 6.0
	if e == nil || e.EffectivenessScore < want-0.0001 || e.EffectivenessScore > want+0.0001 {
		t.Errorf("expected score %.4f, got %+v", want, e)
	}
	if e.TimesHelpful != 3 || e.TimesUnhelpful != 0 {
		t.Errorf("unexpected counters: %+v", e)
	}
	if e.LastFeedback == nil {
		t.Error("last_feedback not set")
	}

	// Feedback for an id never retrieved creates the row rather than failing
	if err := db.ApplyFeedback("ghost", RatingNegative, now); err != nil {
		t.Fatalf("ApplyFeedback on missing row: %v", err)
	}
	g, _ := db.GetEffectiveness("ghost")
	if g == nil || g.TimesUnhelpful != 1 {
		t.Errorf("expected lazily created row, got %+v", g)
	}
}

func TestMostAndLeastEffectiveThresholds(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	// good: 4 retrievals, all positive
	for i := 0; i < 4; i++ {
		db.Touch([]string{"good"}, now)
	}
	for i := 0; i < 4; i++ {
		db.ApplyFeedback("good", RatingPositive, now)
	}

	// bad: 5 retrievals, all negative -> score 1/7
	for i := 0; i < 5; i++ {
		db.Touch([]string{"bad"}, now)
	}
	for i := 0; i < 5; i++ {
		db.ApplyFeedback("bad", RatingNegative, now)
	}

	// single: one retrieval only, excluded from both lists
	db.Touch([]string{"single"}, now)

	top, err := db.MostEffective(10)
	if err != nil {
		t.Fatalf("MostEffective: %v", err)
	}
	if len(top) == 0 || top[0].MemoryID != "good" {
		t.Errorf("expected good first in top list, got %+v", top)
	}
	for _, e := range top {
		if e.MemoryID == "single" {
			t.Error("single-sample memory must not be judged")
		}
	}

	bottom, err := db.LeastEffective(10)
	if err != nil {
		t.Fatalf("LeastEffective: %v", err)
	}
	if len(bottom) != 1 || bottom[0].MemoryID != "bad" {
		t.Errorf("expected only bad in bottom list, got %+v", bottom)
	}
}

func TestGetEffectivenessBatch(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	db.Touch([]string{"a", "b"}, now)
	batch, err := db.GetEffectivenessBatch([]string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("GetEffectivenessBatch: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("expected 2 rows, got %d", len(batch))
	}
	if _, ok := batch["missing"]; ok {
		t.Error("missing id must be absent from the map")
	}

	empty, err := db.GetEffectivenessBatch(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty batch: %v %v", empty, err)
	}
}
