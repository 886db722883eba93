package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"divorce-wizard/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	json "github.com/goccy/go-json"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchUnavailable = errors.New("SEARCH_UNAVAILABLE")
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"title":       {"type": "text"},
			"slug":        {"type": "keyword"},
			"excerpt":     {"type": "text"},
			"body":        {"type": "text"},
			"author":      {"type": "keyword"},
			"categories":  {"type": "keyword"},
			"imageUrl":    {"type": "keyword", "index": false},
			"publishedAt": {"type": "date"}
		}
	}
}`

// SearchIndex is the full-text index of blog posts.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndex(client *elasticsearch.Client, index string) *SearchIndex {
	if client == nil {
		return nil
	}
	return &SearchIndex{client: client, index: index}
}

// Search matches title, excerpt and body, best first.
func (s *SearchIndex) Search(ctx context.Context, query string, size int) ([]models.BlogPost, error) {
	if s == nil {
		return nil, ErrSearchUnavailable
	}
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^3", "excerpt^2", "body"},
				"fuzziness": "AUTO",
			},
		},
		"_source": map[string]interface{}{"excludes": []string{"body"}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.BlogPost `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	posts := make([]models.BlogPost, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		posts = append(posts, hit.Source)
	}
	return posts, nil
}

// Reindex creates the index when missing and bulk-indexes posts by id.
func (s *SearchIndex) Reindex(ctx context.Context, posts []models.BlogPost) (int, error) {
	if s == nil {
		return 0, ErrSearchUnavailable
	}
	if err := s.ensureIndex(ctx); err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, p := range posts {
		meta, _ := json.Marshal(map[string]interface{}{"index": map[string]string{"_id": p.ID}})
		doc, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("%w: encode %s: %v", ErrSearchQueryFailed, p.ID, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(&buf,
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: bulk: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: bulk: %s", ErrSearchQueryFailed, res.Status())
	}

	var r struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("%w: decode bulk: %v", ErrSearchQueryFailed, err)
	}

	indexed := 0
	for _, item := range r.Items {
		for _, result := range item {
			if result.Status >= 200 && result.Status < 300 {
				indexed++
			}
		}
	}
	if r.Errors {
		return indexed, fmt.Errorf("%w: %d of %d posts failed to index", ErrSearchQueryFailed, len(posts)-indexed, len(posts))
	}
	return indexed, nil
}

func (s *SearchIndex) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: index exists: %v", ErrSearchQueryFailed, err)
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrSearchQueryFailed, res.Status())
	}
	return nil
}
