package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteStore talks to the hosted semantic memory service over HTTP.
// Namespaces map to collections on the service side.
type RemoteStore struct {
	Endpoint   string // e.g. http://localhost:6333
	httpClient *http.Client
}

// NewRemoteStore creates a client for the given endpoint.
func NewRemoteStore(endpoint string) *RemoteStore {
	return &RemoteStore{
		Endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type wireRecord struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Score     float64           `json:"score,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (w wireRecord) record() Record {
	meta, createdAt := DecodeMeta(w.Metadata)
	if w.CreatedAt.IsZero() {
		w.CreatedAt = createdAt
	}
	return Record{
		ID:        w.ID,
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
		Score:     w.Score,
		Metadata:  meta,
	}
}

// Add appends a record to the namespace's collection and returns the
// service-assigned id.
func (r *RemoteStore) Add(ctx context.Context, namespace, content string, meta Metadata) (string, error) {
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = MetadataSchemaVersion
	}
	payload := map[string]any{
		"content":  content,
		"metadata": EncodeMeta(meta, time.Now().UTC()),
	}

	var out struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points", r.Endpoint, namespace)
	if err := r.post(ctx, url, payload, &out); err != nil {
		return "", err
	}
	if out.Result.ID == "" {
		return "", fmt.Errorf("memstore: add returned no id")
	}
	return out.Result.ID, nil
}

// Search returns the service's ranked results for the query.
func (r *RemoteStore) Search(ctx context.Context, namespace, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	payload := map[string]any{
		"query": query,
		"limit": limit,
	}

	var out struct {
		Result []wireRecord `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", r.Endpoint, namespace)
	if err := r.post(ctx, url, payload, &out); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(out.Result))
	for _, w := range out.Result {
		records = append(records, w.record())
	}
	return records, nil
}

// List scrolls the full collection. The service pages results; the client
// follows the offset cursor until exhausted.
func (r *RemoteStore) List(ctx context.Context, namespace string) ([]Record, error) {
	var records []Record
	var offset string

	for {
		payload := map[string]any{"limit": 256}
		if offset != "" {
			payload["offset"] = offset
		}

		var out struct {
			Result struct {
				Points []wireRecord `json:"points"`
				Next   string       `json:"next_offset"`
			} `json:"result"`
		}
		url := fmt.Sprintf("%s/collections/%s/points/scroll", r.Endpoint, namespace)
		if err := r.post(ctx, url, payload, &out); err != nil {
			return nil, err
		}

		for _, w := range out.Result.Points {
			records = append(records, w.record())
		}
		if out.Result.Next == "" || len(out.Result.Points) == 0 {
			break
		}
		offset = out.Result.Next
	}
	return records, nil
}

func (r *RemoteStore) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("memstore: status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
