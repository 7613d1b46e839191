package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/rbac_auth/internal/events"
)

var ErrSearch = errors.New("audit search failed")

// Indexer is an events.Publisher that stores each event as one document.
type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

func (i *Indexer) Publish(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	res, err := i.es.Index(i.index, bytes.NewReader(data),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(ev.ID),
	)
	if err != nil {
		return fmt.Errorf("audit: index event: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("audit: index event: %s: %s", res.Status(), body)
	}
	return nil
}

func (i *Indexer) Close() error { return nil }

// MaxResultWindow is the default index.max_result_window; Elasticsearch
// rejects searches whose From+Size exceeds it.
const MaxResultWindow = 10000

type Query struct {
	Text   string
	UserID string
	Type   string
	From   int
	Size   int
}

func (q Query) body() map[string]any {
	var must []any
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     q.Text,
				"fields":    []string{"username^2", "user_agent", "reason", "type"},
				"fuzziness": "AUTO",
			},
		})
	}
	var filter []any
	if q.UserID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"user_id.keyword": q.UserID}})
	}
	if q.Type != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"type.keyword": strings.ToLower(q.Type)}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 || len(filter) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must, "filter": filter}}
	}
	return map[string]any{
		"query": query,
		"sort":  []any{map[string]any{"occurred_at": map[string]any{"order": "desc"}}},
		"from":  q.From,
		"size":  q.Size,
	}
}

func (i *Indexer) Search(ctx context.Context, q Query) (int64, []events.Event, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q.body()); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("%w: %s: %s", ErrSearch, res.Status(), body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source events.Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("%w: decode: %w", ErrSearch, err)
	}

	out := make([]events.Event, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		out[n] = hit.Source
	}
	return r.Hits.Total.Value, out, nil
}
