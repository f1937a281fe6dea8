package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

type fakeSource struct {
	posts     []models.Post
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeSource) SearchTitles(_ context.Context, query string, limit int) ([]models.Post, error) {
	f.lastQuery, f.lastLimit = query, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Post
	for _, p := range f.posts {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSource) EachPost(_ context.Context, batchSize int, fn func([]models.Post) error) error {
	for i := 0; i < len(f.posts); i += batchSize {
		end := i + batchSize
		if end > len(f.posts) {
			end = len(f.posts)
		}
		if err := fn(f.posts[i:end]); err != nil {
			return err
		}
	}
	return nil
}

type memCache struct {
	entries map[string][]PostDocument
}

func (m *memCache) Get(_ context.Context, q string) ([]PostDocument, bool) {
	docs, ok := m.entries[q]
	return docs, ok
}

func (m *memCache) Set(_ context.Context, q string, docs []PostDocument) {
	m.entries[q] = docs
}

func samplePosts() []models.Post {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.Post{
		{ID: 1, Title: "Getting Started with Go", AuthorID: 7, Author: &models.User{ID: 7, Username: "ada"}, CreatedAt: created},
		{ID: 2, Title: "Advanced GO patterns", AuthorID: 8, CreatedAt: created},
		{ID: 3, Title: "Rust for beginners", AuthorID: 7, CreatedAt: created},
	}
}

func TestSearchUsesDatabaseWithoutCluster(t *testing.T) {
	src := &fakeSource{posts: samplePosts()}
	svc := NewService(nil, src)
	assert.False(t, svc.Enabled())

	docs, err := svc.SearchPosts(context.Background(), "  go ")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "go", src.lastQuery)
	assert.Equal(t, ResultLimit, src.lastLimit)
	assert.Equal(t, "ada", docs[0].Username)
	assert.Equal(t, uint(2), docs[1].ID)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewService(nil, &fakeSource{})
	_, err := svc.SearchPosts(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchPropagatesDatabaseError(t *testing.T) {
	svc := NewService(nil, &fakeSource{err: errors.New("db down")})
	_, err := svc.SearchPosts(context.Background(), "go")
	assert.EqualError(t, err, "db down")
}

func TestSearchServesFromCache(t *testing.T) {
	src := &fakeSource{posts: samplePosts()}
	svc := NewService(nil, src)
	mc := &memCache{entries: map[string][]PostDocument{}}
	svc.SetCache(mc)

	_, err := svc.SearchPosts(context.Background(), "rust")
	require.NoError(t, err)
	require.Contains(t, mc.entries, "rust")

	src.posts = nil
	docs, err := svc.SearchPosts(context.Background(), "rust")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, uint(3), docs[0].ID)
}

func TestIndexOperationsWithoutCluster(t *testing.T) {
	svc := NewService(nil, &fakeSource{})
	assert.NoError(t, svc.IndexPost(context.Background(), &models.Post{ID: 1}))
	assert.NoError(t, svc.DeletePost(context.Background(), 1))

	_, err := svc.Reindex(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestQueryCacheKeyIgnoresCase(t *testing.T) {
	assert.Equal(t, QueryCacheKey("Go Tips"), QueryCacheKey("go tips"))
	assert.NotEqual(t, QueryCacheKey("go"), QueryCacheKey("rust"))
	assert.True(t, strings.HasPrefix(QueryCacheKey("go"), "search:posts:"))
}

func TestTitleQueryEscapesWildcards(t *testing.T) {
	q := titleQuery(`50*off?`, 10)
	assert.Equal(t, 10, q["size"])
	assert.Equal(t, `50\*off\?`, escapeWildcard(`50*off?`))
	assert.Equal(t, `a\\b`, escapeWildcard(`a\b`))
}

// fakeCluster answers the few Elasticsearch endpoints the client calls
func fakeCluster(t *testing.T, searchStatus int, searchBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			_, _ = w.Write([]byte(`{"name":"test","cluster_name":"test","version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(searchBody))
		case strings.HasPrefix(r.URL.Path, "/"+IndexPosts+"/_doc/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchUsesCluster(t *testing.T) {
	srv := fakeCluster(t, http.StatusOK, `{"hits":{"hits":[{"_source":{"id":42,"title":"Go in production","author_id":3,"username":"grace","created_at":"2026-03-01T12:00:00Z"}}]}}`)
	client, err := NewClient(context.Background(), srv.URL)
	require.NoError(t, err)

	src := &fakeSource{posts: samplePosts()}
	svc := NewService(client, src)
	assert.True(t, svc.Enabled())

	docs, err := svc.SearchPosts(context.Background(), "go")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, uint(42), docs[0].ID)
	assert.Equal(t, "grace", docs[0].Username)
	assert.Empty(t, src.lastQuery, "database should not be queried")
}

func TestSearchFallsBackWhenClusterFails(t *testing.T) {
	srv := fakeCluster(t, http.StatusInternalServerError, `{"error":{"type":"search_phase_execution_exception"}}`)
	client, err := NewClient(context.Background(), srv.URL)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.Search().Fallbacks)
	svc := NewService(client, &fakeSource{posts: samplePosts()})

	docs, err := svc.SearchPosts(context.Background(), "rust")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, uint(3), docs[0].ID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Search().Fallbacks))
}

func TestDeleteMissingDocumentIsNotAnError(t *testing.T) {
	srv := fakeCluster(t, http.StatusOK, `{}`)
	client, err := NewClient(context.Background(), srv.URL)
	require.NoError(t, err)

	svc := NewService(client, &fakeSource{})
	assert.NoError(t, svc.DeletePost(context.Background(), 99))
}
