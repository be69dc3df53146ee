package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteAdd(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"result":{"id":"point-1"}}`)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL)
	id, err := s.Add(context.Background(), "user", "remembered thing", Metadata{Category: CategoryPreference})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "point-1" {
		t.Errorf("id = %q, want point-1", id)
	}
	if gotPath != "/collections/user/points" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["content"] != "remembered thing" {
		t.Errorf("content = %v", gotBody["content"])
	}
	meta, ok := gotBody["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata = %v", gotBody["metadata"])
	}
	if meta["category"] != "preference" {
		t.Errorf("category = %v", meta["category"])
	}
	if meta["schema_version"] != "1" {
		t.Errorf("schema_version = %v, want stamped", meta["schema_version"])
	}
}

func TestRemoteAddMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{}}`)
	}))
	defer srv.Close()

	if _, err := NewRemoteStore(srv.URL).Add(context.Background(), "user", "x", Metadata{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestRemoteSearch(t *testing.T) {
	created := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/user/points/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["query"] != "coffee" {
			t.Errorf("query = %v", body["query"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"id":      "m-1",
					"content": "prefers espresso",
					"score":   0.92,
					"metadata": map[string]string{
						"category":   "preference",
						"created_at": created.Format(time.RFC3339Nano),
					},
				},
			},
		})
	}))
	defer srv.Close()

	hits, err := NewRemoteStore(srv.URL).Search(context.Background(), "user", "coffee", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	h := hits[0]
	if h.ID != "m-1" || h.Content != "prefers espresso" || h.Score != 0.92 {
		t.Errorf("hit = %+v", h)
	}
	if h.Metadata.Category != CategoryPreference {
		t.Errorf("category = %q", h.Metadata.Category)
	}
	// created_at falls back to the metadata timestamp when the wire field is absent.
	if !h.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", h.CreatedAt, created)
	}
}

func TestRemoteListFollowsCursor(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		offset, _ := body["offset"].(string)
		offsets = append(offsets, offset)

		switch offset {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"points":      []map[string]any{{"id": "a", "content": "one"}, {"id": "b", "content": "two"}},
					"next_offset": "page-2",
				},
			})
		case "page-2":
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"points": []map[string]any{{"id": "c", "content": "three"}},
				},
			})
		default:
			t.Errorf("unexpected offset %q", offset)
		}
	}))
	defer srv.Close()

	records, err := NewRemoteStore(srv.URL).List(context.Background(), "user")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[2].ID != "c" {
		t.Errorf("last record = %s", records[2].ID)
	}
	if len(offsets) != 2 || offsets[1] != "page-2" {
		t.Errorf("offsets = %v", offsets)
	}
}

func TestRemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL)
	if _, err := s.Search(context.Background(), "user", "q", 5); err == nil {
		t.Error("Search should surface the error status")
	}
	if _, err := s.List(context.Background(), "user"); err == nil {
		t.Error("List should surface the error status")
	}
	if _, err := s.Add(context.Background(), "user", "x", Metadata{}); err == nil {
		t.Error("Add should surface the error status")
	}
}
