// Package search serves post title search from Elasticsearch, falling back to
// the database when no cluster is configured or a query fails.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/goccy/go-json"
	"github.com/quillhub/backend/internal/telemetry"
)

// IndexPosts is the name of the post index
const IndexPosts = "quill-posts"

// Client wraps the Elasticsearch client with the post index operations
type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient connects to the cluster at url. Requests are traced through the
// instrumented transport.
func NewClient(ctx context.Context, url string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.InstrumentedTransport(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info returned [%s]", res.Status())
	}

	return &Client{es: es, index: IndexPosts}, nil
}

// Ping checks the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned [%s]", res.Status())
	}
	return nil
}

// EnsureIndex creates the post index when it does not exist
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(postMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return responseError(res, "creating index")
}

// IndexDocument writes or replaces one post document
func (c *Client) IndexDocument(ctx context.Context, doc PostDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal post document: %w", err)
	}

	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.docID()),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	return responseError(res, "indexing post")
}

// DeleteDocument removes a post document; a missing document is not an error
func (c *Client) DeleteDocument(ctx context.Context, id uint) error {
	res, err := c.es.Delete(c.index, PostDocument{ID: id}.docID(),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.StatusCode == 404 {
		res.Body.Close()
		return nil
	}
	return responseError(res, "deleting post")
}

// BulkIndex writes docs in one request
func (c *Client) BulkIndex(ctx context.Context, docs []PostDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]map[string]string{"index": {"_id": doc.docID()}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode bulk metadata: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode post document: %w", err)
		}
	}

	res, err := c.es.Bulk(&buf,
		c.es.Bulk.WithIndex(c.index),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index posts: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res, "bulk indexing posts")
	}

	var summary struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if summary.Errors {
		return fmt.Errorf("bulk indexing reported item failures")
	}
	return nil
}

// SearchTitles returns up to limit documents whose title contains query,
// ignoring case
func (c *Client) SearchTitles(ctx context.Context, query string, limit int) ([]PostDocument, error) {
	body, err := json.Marshal(titleQuery(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError(res, "searching posts")
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Source PostDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]PostDocument, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// titleQuery matches analyzed title terms or a case-insensitive substring of
// the raw title, best matches first then newest
func titleQuery(query string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"title": map[string]interface{}{
								"query":    query,
								"operator": "and",
							},
						},
					},
					map[string]interface{}{
						"wildcard": map[string]interface{}{
							"title.keyword": map[string]interface{}{
								"value":            "*" + escapeWildcard(query) + "*",
								"case_insensitive": true,
							},
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": "desc"},
		},
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

// responseError closes res and converts an error status into an error
func responseError(res *esapi.Response, action string) error {
	defer res.Body.Close()
	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return decodeError(res, action)
}

func decodeError(res *esapi.Response, action string) error {
	var errResp map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("error response [%s]", res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}
