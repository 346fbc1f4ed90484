// Package search keeps blog descriptions in Elasticsearch for full text
// lookup. Postgres stays the source of truth; the index only returns ids.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"blog-service/internal/util"
)

const blogMapping = `{
  "settings": {"number_of_shards": 1},
  "mappings": {
    "properties": {
      "blog_id":     {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "description": {"type": "text"},
      "created_at":  {"type": "date"}
    }
  }
}`

const defaultLimit = 20

type BlogDocument struct {
	BlogID      string    `json:"blog_id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// esAPI is the part of *client.ESClient used here.
type esAPI interface {
	EnsureIndex(ctx context.Context, index, mapping string) error
	IndexDocument(ctx context.Context, index, id string, document interface{}) (*esapi.Response, error)
	DeleteDocument(ctx context.Context, index, id string) (*esapi.Response, error)
	Search(ctx context.Context, index string, query map[string]interface{}) (*esapi.Response, error)
	ParseResponse(res *esapi.Response, target interface{}) error
}

type BlogIndex struct {
	es    esAPI
	index string
}

func NewBlogIndex(es esAPI, index string) *BlogIndex {
	return &BlogIndex{es: es, index: index}
}

func (b *BlogIndex) EnsureIndex(ctx context.Context) error {
	return b.es.EnsureIndex(ctx, b.index, blogMapping)
}

func (b *BlogIndex) Index(ctx context.Context, doc BlogDocument) error {
	res, err := b.es.IndexDocument(ctx, b.index, doc.BlogID, doc)
	if err != nil {
		return err
	}
	if err := b.es.ParseResponse(res, &struct{}{}); err != nil {
		return fmt.Errorf("index blog %s: %w", doc.BlogID, err)
	}
	util.Debug("Blog indexed", zap.String("blog_id", doc.BlogID))
	return nil
}

// Delete removes a blog from the index. Missing documents are ignored.
func (b *BlogIndex) Delete(ctx context.Context, blogID string) error {
	res, err := b.es.DeleteDocument(ctx, b.index, blogID)
	if err != nil {
		return err
	}
	if err := b.es.ParseResponse(res, nil); err != nil {
		return fmt.Errorf("delete blog %s: %w", blogID, err)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns matching blog ids ordered by relevance.
func (b *BlogIndex) Search(ctx context.Context, q string, limit int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
	}

	res, err := b.es.Search(ctx, b.index, query)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := b.es.ParseResponse(res, &out); err != nil {
		return nil, fmt.Errorf("search blogs: %w", err)
	}

	ids := make([]string, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Nop is used when Elasticsearch is disabled. Search finds nothing.
type Nop struct{}

func (Nop) EnsureIndex(context.Context) error                     { return nil }
func (Nop) Index(context.Context, BlogDocument) error             { return nil }
func (Nop) Delete(context.Context, string) error                  { return nil }
func (Nop) Search(context.Context, string, int) ([]string, error) { return nil, nil }
