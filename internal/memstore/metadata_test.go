package memstore

import (
	"reflect"
	"testing"
	"time"
)

func TestMetaEncodeDecodeRoundTrip(t *testing.T) {
	validFrom := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ingested := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	current := true
	created := time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)

	in := Metadata{
		SchemaVersion:   MetadataSchemaVersion,
		Category:        CategoryEntityFact,
		Subcategory:     "residence",
		Confidence:      0.85,
		Source:          "fact-upsert",
		RelatedEntities: []string{"user", "berlin"},
		Tags:            []string{"location"},
		Entity:          "user",
		FactKey:         "home-city",
		ValidFrom:       &validFrom,
		IngestedAt:      &ingested,
		SupersedesID:    "abc-123",
		IsCurrent:       &current,
		FactType:        FactDynamic,
	}

	got, gotCreated := DecodeMeta(EncodeMeta(in, created))
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip changed metadata:\n got %+v\nwant %+v", got, in)
	}
	if !gotCreated.Equal(created) {
		t.Errorf("created_at = %v, want %v", gotCreated, created)
	}
}

func TestDecodeMetaDefaults(t *testing.T) {
	m, created := DecodeMeta(nil)
	if m.Category != CategoryUncategorized {
		t.Errorf("missing category decoded as %q, want uncategorized", m.Category)
	}
	if !created.IsZero() {
		t.Errorf("created_at = %v, want zero", created)
	}
	if m.IsCurrent != nil || m.ValidFrom != nil {
		t.Errorf("missing optionals decoded non-nil: %+v", m)
	}
	if !m.Current() {
		t.Error("unset is_current should read as current")
	}
}

func TestDecodeMetaMalformedValues(t *testing.T) {
	m, created := DecodeMeta(map[string]string{
		"category":       "something-made-up",
		"confidence":     "not a number",
		"tags":           "{broken json",
		"valid_from":     "yesterday-ish",
		"is_current":     "maybe",
		"fact_type":      "volatile",
		"created_at":     "not a timestamp",
		"schema_version": "one",
	})
	if m.Category != CategoryUncategorized {
		t.Errorf("unknown category = %q, want uncategorized", m.Category)
	}
	if m.Confidence != 0 || m.SchemaVersion != 0 {
		t.Errorf("unparseable numbers = %v / %v, want zeros", m.Confidence, m.SchemaVersion)
	}
	if m.Tags != nil {
		t.Errorf("broken tags json = %v, want nil", m.Tags)
	}
	if m.ValidFrom != nil || !created.IsZero() {
		t.Errorf("unparseable timestamps decoded: %v, %v", m.ValidFrom, created)
	}
	if m.IsCurrent != nil {
		t.Errorf("unparseable is_current = %v, want nil", *m.IsCurrent)
	}
	if m.FactType != "" {
		t.Errorf("unknown fact_type = %q, want empty", m.FactType)
	}
}

func TestEncodeMetaOmitsZeroFields(t *testing.T) {
	raw := EncodeMeta(Metadata{}, time.Now())
	if len(raw) != 2 {
		t.Errorf("empty metadata encoded %d keys, want schema_version and created_at only: %v", len(raw), raw)
	}
	if _, ok := raw["schema_version"]; !ok {
		t.Error("schema_version missing")
	}
	if _, ok := raw["created_at"]; !ok {
		t.Error("created_at missing")
	}
}

func TestMetadataPredicates(t *testing.T) {
	notCurrent := false
	if (Metadata{IsCurrent: &notCurrent}).Current() {
		t.Error("explicit false should not read current")
	}
	if !(Metadata{ArchivesID: "x"}).Tombstone() {
		t.Error("archives_id should mark a tombstone")
	}
	if (Metadata{}).Tombstone() {
		t.Error("plain record detected as tombstone")
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	m := Metadata{ValidFrom: &from, ValidUntil: &until}
	if m.ValidAt(from.Add(-time.Hour)) {
		t.Error("valid before window start")
	}
	if !m.ValidAt(from.Add(24 * time.Hour)) {
		t.Error("invalid inside window")
	}
	if m.ValidAt(until) {
		t.Error("valid at exclusive window end")
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]Category{
		"preference":       CategoryPreference,
		"  Preference  ":   CategoryPreference,
		"ENTITY-FACT":      CategoryEntityFact,
		"nonsense":         CategoryUncategorized,
		"":                 CategoryUncategorized,
		"workflow-pattern": CategoryWorkflowPattern,
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
