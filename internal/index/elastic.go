package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"floatchat/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Elastic keeps one Elasticsearch index per collection and ranks documents
// with a full-text match on the document field.
type Elastic struct {
	client *elasticsearch.Client
}

// NewElasticClient creates an Elasticsearch client
func NewElasticClient(addresses []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}
	if username != "" {
		cfg.Username = username
		cfg.Password = password
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

// NewElastic creates an Elasticsearch backed index.
func NewElastic(client *elasticsearch.Client) *Elastic {
	return &Elastic{client: client}
}

type esDocument struct {
	Document string        `json:"document"`
	Metadata model.JSONMap `json:"metadata"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64    `json:"_score"`
			Source esDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search implements Index. Scores are turned into distances as
// 1/(1+score), so higher scoring hits sort first.
func (e *Elastic) Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error) {
	if k <= 0 {
		return []model.ContextItem{}, nil
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{"document": text},
		},
		"size": k,
	}
	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{collection},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []model.ContextItem{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var r esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	items := make([]model.ContextItem, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		meta := hit.Source.Metadata
		if meta == nil {
			meta = model.JSONMap{}
		}
		items = append(items, model.ContextItem{
			DocumentText:       hit.Source.Document,
			Metadata:           meta,
			SimilarityDistance: 1 / (1 + hit.Score),
			SourceCollection:   collection,
		})
	}
	return items, nil
}

// Upsert implements Index. Each document is indexed under its ID with an
// immediate refresh.
func (e *Elastic) Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string) {
	success := 0
	var errors []string

	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" || doc.ID == "" {
			errors = append(errors, fmt.Sprintf("document %d: id and text are required", i))
			continue
		}
		meta := doc.Metadata
		if meta == nil {
			meta = model.JSONMap{}
		}
		body, err := json.Marshal(esDocument{Document: doc.Text, Metadata: meta})
		if err != nil {
			errors = append(errors, fmt.Sprintf("id %s: %v", doc.ID, err))
			continue
		}

		req := esapi.IndexRequest{
			Index:      collection,
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			errors = append(errors, fmt.Sprintf("id %s: %v", doc.ID, err))
			continue
		}
		if res.IsError() {
			errors = append(errors, fmt.Sprintf("id %s: %s", doc.ID, res.Status()))
			res.Body.Close()
			continue
		}
		res.Body.Close()
		success++
	}
	return success, errors
}

// Count implements Index. A missing index counts as empty.
func (e *Elastic) Count(ctx context.Context, collection string) (int64, error) {
	req := esapi.CountRequest{Index: []string{collection}}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if res.IsError() {
		return 0, fmt.Errorf("count failed: %s", res.String())
	}

	var r struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return r.Count, nil
}
