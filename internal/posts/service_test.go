package posts

import (
	"context"
	"os"
	"testing"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

type memStore struct {
	nextID uint
	posts  map[uint]*models.Post
}

func (s *memStore) CreatePost(_ context.Context, p *models.Post) error {
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *memStore) GetPost(_ context.Context, id uint) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ListPosts(_ context.Context, _, _ int) ([]models.Post, int64, error) {
	var out []models.Post
	for _, p := range s.posts {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (s *memStore) UpdatePost(_ context.Context, p *models.Post) error {
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *memStore) DeletePost(_ context.Context, id uint) error {
	delete(s.posts, id)
	return nil
}

type recordingIndexer struct {
	indexed []uint
	deleted []uint
	err     error
}

func (r *recordingIndexer) IndexPost(_ context.Context, p *models.Post) error {
	r.indexed = append(r.indexed, p.ID)
	return r.err
}

func (r *recordingIndexer) DeletePost(_ context.Context, id uint) error {
	r.deleted = append(r.deleted, id)
	return r.err
}

func newService() (*Service, *recordingIndexer) {
	idx := &recordingIndexer{}
	return NewService(&memStore{posts: make(map[uint]*models.Post)}, idx), idx
}

func TestCreateIndexesPost(t *testing.T) {
	svc, idx := newService()
	p, err := svc.Create(context.Background(), 1, "  Hello  ", "world")
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, []uint{p.ID}, idx.indexed)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Create(context.Background(), 1, "t", "  ")
	assert.ErrorIs(t, err, ErrContentMissing)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, idx := newService()
	p, err := svc.Create(ctx, 1, "title", "body")
	require.NoError(t, err)

	title := "new title"
	_, err = svc.Update(ctx, p.ID, 2, false, Update{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, p.ID, 1, false, Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "body", updated.Content)

	assert.ErrorIs(t, svc.Delete(ctx, p.ID, 2, false), ErrForbidden)
	assert.NoError(t, svc.Delete(ctx, p.ID, 2, true))
	assert.Equal(t, []uint{p.ID}, idx.deleted)

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndexFailureDoesNotFailWrite(t *testing.T) {
	svc, idx := newService()
	idx.err = assert.AnError
	p, err := svc.Create(context.Background(), 1, "title", "body")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
}
