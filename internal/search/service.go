package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/telemetry"
	"go.uber.org/zap"
)

// ResultLimit caps every title search
const ResultLimit = 10

const (
	backendElasticsearch = "elasticsearch"
	backendDatabase      = "database"
)

var (
	ErrEmptyQuery = errors.New("search query is required")
	ErrDisabled   = errors.New("elasticsearch is not configured")
)

// PostSource is the database side of search
type PostSource interface {
	// SearchTitles matches titles case-insensitively, newest first
	SearchTitles(ctx context.Context, query string, limit int) ([]models.Post, error)
	EachPost(ctx context.Context, batchSize int, fn func([]models.Post) error) error
}

// ResultCache stores finished result lists per query
type ResultCache interface {
	Get(ctx context.Context, query string) ([]PostDocument, bool)
	Set(ctx context.Context, query string, docs []PostDocument)
}

// Service answers title searches and keeps the index in step with posts.
// With a nil client every query goes to the database and index calls are no-ops.
type Service struct {
	client *Client
	posts  PostSource
	cache  ResultCache
}

// NewService creates a search service; client may be nil
func NewService(client *Client, posts PostSource) *Service {
	return &Service{client: client, posts: posts}
}

// SetCache enables result caching
func (s *Service) SetCache(c ResultCache) { s.cache = c }

// Enabled reports whether an Elasticsearch cluster backs the service
func (s *Service) Enabled() bool { return s.client != nil }

// SearchPosts returns up to ResultLimit posts whose title contains q,
// ignoring case. Elasticsearch failures fall back to the database.
func (s *Service) SearchPosts(ctx context.Context, q string) ([]PostDocument, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	if s.cache != nil {
		if docs, ok := s.cache.Get(ctx, q); ok {
			return docs, nil
		}
	}

	var (
		docs []PostDocument
		err  error
	)
	if s.client != nil {
		docs, err = s.searchIndex(ctx, q)
		if err != nil {
			metrics.Search().Fallbacks.Inc()
			logger.FromContext(ctx).Warn("Elasticsearch query failed, using database",
				zap.String("query", q), zap.Error(err))
		}
	}
	if s.client == nil || err != nil {
		docs, err = s.searchDatabase(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, q, docs)
	}
	return docs, nil
}

func (s *Service) searchIndex(ctx context.Context, q string) (docs []PostDocument, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSearch(ctx, telemetry.SearchEventAttrs{
		Query: q, Index: s.client.index, Backend: backendElasticsearch,
	})
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	defer observe(backendElasticsearch, time.Now())

	return s.client.SearchTitles(ctx, q, ResultLimit)
}

func (s *Service) searchDatabase(ctx context.Context, q string) (docs []PostDocument, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSearch(ctx, telemetry.SearchEventAttrs{
		Query: q, Index: "posts", Backend: backendDatabase,
	})
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	defer observe(backendDatabase, time.Now())

	list, err := s.posts.SearchTitles(ctx, q, ResultLimit)
	if err != nil {
		return nil, err
	}
	docs = make([]PostDocument, 0, len(list))
	for i := range list {
		docs = append(docs, NewPostDocument(&list[i]))
	}
	return docs, nil
}

func observe(backend string, start time.Time) {
	m := metrics.Search()
	m.QueriesTotal.WithLabelValues(backend).Inc()
	m.QueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

// IndexPost implements posts.Indexer
func (s *Service) IndexPost(ctx context.Context, post *models.Post) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.IndexDocument(ctx, NewPostDocument(post)); err != nil {
		metrics.Search().IndexErrors.WithLabelValues("index").Inc()
		return err
	}
	return nil
}

// DeletePost implements posts.Indexer
func (s *Service) DeletePost(ctx context.Context, id uint) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.DeleteDocument(ctx, id); err != nil {
		metrics.Search().IndexErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// Reindex rebuilds the post index from the database and returns how many
// posts were written. An index with an outdated mapping is dropped first.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, ErrDisabled
	}

	outdated, err := s.client.CheckIndexVersion(ctx)
	if err != nil {
		return 0, err
	}
	if outdated {
		logger.InfoWithFields("Recreating search index", zap.Int("version", IndexVersion))
		if err := s.client.DeleteIndex(ctx); err != nil {
			return 0, err
		}
	}
	if err := s.client.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	total := 0
	err = s.posts.EachPost(ctx, 200, func(batch []models.Post) error {
		docs := make([]PostDocument, 0, len(batch))
		for i := range batch {
			docs = append(docs, NewPostDocument(&batch[i]))
		}
		if err := s.client.BulkIndex(ctx, docs); err != nil {
			metrics.Search().IndexErrors.WithLabelValues("bulk").Inc()
			return err
		}
		total += len(docs)
		return nil
	})
	if err != nil {
		return total, err
	}
	logger.InfoWithFields("Search index rebuilt", zap.Int("posts", total))
	return total, nil
}
