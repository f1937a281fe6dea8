package comments

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

type memStore struct {
	mu       sync.Mutex
	nextID   uint
	posts    map[uint]*models.Post
	comments map[uint]*models.Comment
	users    []models.User
}

func newMemStore() *memStore {
	return &memStore{
		posts:    map[uint]*models.Post{10: {ID: 10, Title: "Hello", AuthorID: 1}},
		comments: make(map[uint]*models.Comment),
		users: []models.User{
			{ID: 1, Username: "owner"},
			{ID: 2, Username: "alice"},
			{ID: 3, Username: "Bob"},
		},
	}
}

func (s *memStore) user(id uint) *models.User {
	for i := range s.users {
		if s.users[i].ID == id {
			u := s.users[i]
			return &u
		}
	}
	return nil
}

func (s *memStore) FindPost(_ context.Context, id uint) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *memStore) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	c.Author = s.user(c.AuthorID)
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *memStore) ListComments(_ context.Context, postID uint, _, _ int) ([]models.Comment, error) {
	var out []models.Comment
	for id := uint(1); id <= s.nextID; id++ {
		if c, ok := s.comments[id]; ok && c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) GetComment(_ context.Context, id uint) (*models.Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	return c, nil
}

func (s *memStore) DeleteComment(_ context.Context, id uint) error {
	delete(s.comments, id)
	return nil
}

func (s *memStore) UsersByUsernames(_ context.Context, names []string) ([]models.User, error) {
	var out []models.User
	for _, n := range names {
		for _, u := range s.users {
			if strings.EqualFold(u.Username, n) {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type sent struct {
	receiver uint
	message  string
	opts     notifications.Options
}

type recordingNotifier struct{ sent []sent }

func (r *recordingNotifier) Notify(_ context.Context, receiver uint, message string, opts notifications.Options) (*models.Notification, error) {
	r.sent = append(r.sent, sent{receiver, message, opts})
	return &models.Notification{}, nil
}

func (r *recordingNotifier) ofType(t string) []sent {
	var out []sent
	for _, s := range r.sent {
		if s.opts.Type == t {
			out = append(out, s)
		}
	}
	return out
}

type recordingPublisher struct {
	created   []*models.Comment
	mentioned []uint
}

func (p *recordingPublisher) CommentCreated(_ context.Context, c *models.Comment) {
	p.created = append(p.created, c)
}

func (p *recordingPublisher) Mentioned(_ context.Context, userID uint, _ string, _ uint) {
	p.mentioned = append(p.mentioned, userID)
}

func newService() (*Service, *memStore, *recordingNotifier, *recordingPublisher) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	pub := &recordingPublisher{}
	svc := NewService(store, notifier)
	svc.SetPublisher(pub)
	return svc, store, notifier, pub
}

func TestCreateNotifiesOwnerAndPublishes(t *testing.T) {
	svc, _, notifier, pub := newService()

	c, err := svc.Create(context.Background(), 2, 10, "  nice post  ", SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, "nice post", c.Text)

	owner := notifier.ofType(models.NotificationComment)
	require.Len(t, owner, 1)
	assert.Equal(t, uint(1), owner[0].receiver)
	assert.Equal(t, "alice commented on your post", owner[0].message)
	assert.Equal(t, c.ID, *owner[0].opts.CommentID)

	require.Len(t, pub.created, 1)
	assert.Equal(t, c.ID, pub.created[0].ID)
}

func TestCreateOnOwnPostSkipsOwnerNotification(t *testing.T) {
	svc, _, notifier, pub := newService()

	_, err := svc.Create(context.Background(), 1, 10, "thanks everyone", SourceWebSocket)
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
	assert.Len(t, pub.created, 1)
}

func TestCreateResolvesMentionsOnce(t *testing.T) {
	svc, _, notifier, pub := newService()

	_, err := svc.Create(context.Background(), 2, 10, "hey @bob and @BOB, also @alice and @ghost", SourceHTTP)
	require.NoError(t, err)

	mentioned := notifier.ofType(models.NotificationMention)
	require.Len(t, mentioned, 1, "duplicates collapse, self and unknown handles are skipped")
	assert.Equal(t, uint(3), mentioned[0].receiver)
	assert.Equal(t, "alice mentioned you in a comment", mentioned[0].message)
	assert.Equal(t, []uint{3}, pub.mentioned)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 2, 10, "   ", SourceHTTP)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.Create(ctx, 2, 10, strings.Repeat("a", maxTextLength+1), SourceHTTP)
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = svc.Create(ctx, 2, 99, "hi", SourceHTTP)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePermissions(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	c, err := svc.Create(ctx, 2, 10, "mine", SourceHTTP)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID, 3, false), ErrForbidden)
	assert.NoError(t, svc.Delete(ctx, c.ID, 3, true), "admins may delete any comment")
	assert.ErrorIs(t, svc.Delete(ctx, c.ID, 2, false), ErrCommentNotFound)
}

func TestListOldestFirst(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()
	first, _ := svc.Create(ctx, 2, 10, "first", SourceHTTP)
	second, _ := svc.Create(ctx, 3, 10, "second", SourceHTTP)

	list, err := svc.List(ctx, 10, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}
