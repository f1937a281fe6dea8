package reactions

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
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
	mu        sync.Mutex
	nextID    uint
	targets   map[Kind]map[uint]*Target
	reactions map[uint]*models.Reaction
	users     map[uint]string
}

func newMemStore() *memStore {
	s := &memStore{
		targets: map[Kind]map[uint]*Target{
			KindPost:    {10: {Kind: KindPost, ID: 10, OwnerID: 1, PostID: 10}},
			KindComment: {20: {Kind: KindComment, ID: 20, OwnerID: 1, PostID: 10}},
		},
		reactions: make(map[uint]*models.Reaction),
		users:     map[uint]string{1: "owner", 2: "alice", 3: "bob"},
	}
	return s
}

func (s *memStore) FindTarget(_ context.Context, kind Kind, id uint) (*Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[kind][id]
	if !ok {
		return nil, ErrTargetNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) FindReaction(_ context.Context, userID uint, kind Kind, targetID uint) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reactions {
		if r.UserID == userID && r.TargetKind == string(kind) && r.TargetID == targetID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateReaction(_ context.Context, r *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reactions {
		if existing.UserID == r.UserID && existing.TargetKind == r.TargetKind && existing.TargetID == r.TargetID {
			return ErrDuplicate
		}
	}
	s.nextID++
	r.ID = s.nextID
	cp := *r
	s.reactions[r.ID] = &cp
	return nil
}

func (s *memStore) UpdateReactionType(_ context.Context, id uint, t string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions[id].Type = t
	return nil
}

func (s *memStore) DeleteReaction(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reactions, id)
	return nil
}

func (s *memStore) CountByType(_ context.Context, kind Kind, targetID uint) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64)
	for _, r := range s.reactions {
		if r.TargetKind == string(kind) && r.TargetID == targetID {
			out[r.Type]++
		}
	}
	return out, nil
}

func (s *memStore) ListReactors(_ context.Context, kind Kind, targetID uint, t string) ([]models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reaction
	for _, r := range s.reactions {
		if r.TargetKind == string(kind) && r.TargetID == targetID && (t == "" || r.Type == t) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) Username(_ context.Context, id uint) (string, error) {
	return s.users[id], nil
}

func (s *memStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reactions)
}

type sentNotification struct {
	receiver uint
	message  string
	opts     notifications.Options
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, receiver uint, message string, opts notifications.Options) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{receiver: receiver, message: message, opts: opts})
	return &models.Notification{}, nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type recordingObserver struct {
	mu      sync.Mutex
	updates [][]TypeCount
}

func (o *recordingObserver) ReactionsChanged(_ context.Context, _ Kind, _ uint, counts []TypeCount) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, counts)
}

func countOf(counts []TypeCount, t string) int64 {
	for _, c := range counts {
		if c.Type == t {
			return c.Count
		}
	}
	return -1
}

func TestReactStateMachine(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := NewEngine(store, notifier)

	res, err := engine.React(ctx, 2, KindPost, 10, "like")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, State{Reacted: true, Type: "like"}, res.State)

	res, err = engine.React(ctx, 2, KindPost, 10, "love")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "like", res.Previous)
	assert.Equal(t, 1, store.rowCount(), "an update never creates a second row")

	res, err = engine.React(ctx, 2, KindPost, 10, "love")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, res.Outcome)
	assert.False(t, res.State.Reacted)
	assert.Nil(t, res.Reaction)
	assert.Zero(t, store.rowCount())

	require.Len(t, notifier.sent, 3)
	assert.Equal(t, "alice reacted to your post with like", notifier.sent[0].message)
	assert.Equal(t, "alice changed their reaction on your post to love", notifier.sent[1].message)
	assert.Equal(t, "alice removed their reaction from your post", notifier.sent[2].message)
	for i, outcome := range []string{"added", "updated", "removed"} {
		assert.Equal(t, uint(1), notifier.sent[i].receiver)
		assert.Equal(t, models.NotificationReaction, notifier.sent[i].opts.Type)
		assert.Equal(t, outcome, notifier.sent[i].opts.ReactionStatus)
		assert.Equal(t, uint(2), notifier.sent[i].opts.SenderID)
	}
}

func TestReactOnCommentNotifiesWithCommentType(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := NewEngine(newMemStore(), notifier)

	_, err := engine.React(context.Background(), 3, KindComment, 20, "laugh")
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, models.NotificationCommentReaction, n.opts.Type)
	require.NotNil(t, n.opts.CommentID)
	require.NotNil(t, n.opts.PostID)
	assert.Equal(t, uint(20), *n.opts.CommentID)
	assert.Equal(t, uint(10), *n.opts.PostID)
	assert.Equal(t, "bob reacted to your comment with laugh", n.message)
}

func TestSelfReactionNeverNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := NewEngine(newMemStore(), notifier)

	for _, typ := range []string{"like", "love", "love"} {
		_, err := engine.React(context.Background(), 1, KindPost, 10, typ)
		require.NoError(t, err)
	}
	assert.Zero(t, notifier.count())
}

func TestReactValidation(t *testing.T) {
	engine := NewEngine(newMemStore(), nil)
	ctx := context.Background()

	_, err := engine.React(ctx, 2, KindPost, 10, "dislike")
	assert.ErrorIs(t, err, ErrInvalidReaction, "dislike is a comment-only type")

	_, err = engine.React(ctx, 2, KindComment, 20, "love")
	assert.ErrorIs(t, err, ErrInvalidReaction)

	_, err = engine.React(ctx, 2, Kind("story"), 10, "like")
	assert.ErrorIs(t, err, ErrInvalidReaction)

	_, err = engine.React(ctx, 2, KindPost, 999, "like")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestConcurrentTogglesAreSerialized(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := NewEngine(store, notifier)

	const n = 50
	var wg sync.WaitGroup
	outcomes := make(chan Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.React(context.Background(), 2, KindPost, 10, "like")
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	var added, removed int
	for o := range outcomes {
		switch o {
		case OutcomeAdded:
			added++
		case OutcomeRemoved:
			removed++
		}
	}
	assert.Equal(t, n/2, added)
	assert.Equal(t, n/2, removed)
	assert.Zero(t, store.rowCount(), "an even number of toggles ends with no reaction")
	assert.Equal(t, n, notifier.count(), "one notification per transition")
	assert.Zero(t, engine.locks.size(), "lock entries are released")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	engine := NewEngine(newMemStore(), notifier)

	_, err := engine.Remove(ctx, 2, KindPost, 10)
	assert.ErrorIs(t, err, ErrNoReaction)

	_, err = engine.React(ctx, 2, KindPost, 10, "sad")
	require.NoError(t, err)
	res, err := engine.Remove(ctx, 2, KindPost, 10)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, res.Outcome)
	assert.Equal(t, "sad", res.Previous)
	assert.Equal(t, 2, notifier.count())
}

func TestSummaryZeroFillsAndReportsRequester(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(newMemStore(), nil)

	_, err := engine.React(ctx, 2, KindPost, 10, "love")
	require.NoError(t, err)
	_, err = engine.React(ctx, 3, KindPost, 10, "love")
	require.NoError(t, err)

	s, err := engine.Summary(ctx, KindPost, 10, 2)
	require.NoError(t, err)
	require.Len(t, s.Counts, 5)
	assert.Equal(t, "like", s.Counts[0].Type)
	assert.Equal(t, int64(0), countOf(s.Counts, "like"))
	assert.Equal(t, int64(2), countOf(s.Counts, "love"))
	require.NotNil(t, s.UserReaction)
	assert.Equal(t, "love", *s.UserReaction)

	anon, err := engine.Summary(ctx, KindPost, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, anon.UserReaction)

	_, err = engine.Summary(ctx, KindPost, 404, 2)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestObserverReceivesFreshCounts(t *testing.T) {
	ctx := context.Background()
	observer := &recordingObserver{}
	engine := NewEngine(newMemStore(), nil)
	engine.SetObserver(observer)

	_, err := engine.React(ctx, 2, KindComment, 20, "like")
	require.NoError(t, err)
	_, err = engine.React(ctx, 2, KindComment, 20, "like")
	require.NoError(t, err)

	require.Len(t, observer.updates, 2)
	assert.Equal(t, int64(1), countOf(observer.updates[0], "like"))
	assert.Equal(t, int64(0), countOf(observer.updates[1], "like"))
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[uint][]TypeCount
	invalidated int
}

func (c *mapCache) Get(_ context.Context, _ Kind, id uint) ([]TypeCount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[id]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, _ Kind, id uint, counts []TypeCount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = counts
}

func (c *mapCache) Invalidate(_ context.Context, _ Kind, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated++
}

func TestCacheRefreshedOnTransition(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{entries: make(map[uint][]TypeCount)}
	engine := NewEngine(newMemStore(), nil)
	engine.SetCache(cache)

	s, err := engine.Summary(ctx, KindPost, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), countOf(s.Counts, "haha"))

	_, err = engine.React(ctx, 2, KindPost, 10, "haha")
	require.NoError(t, err)
	cached, ok := cache.Get(ctx, KindPost, 10)
	require.True(t, ok)
	assert.Equal(t, int64(1), countOf(cached, "haha"))
	assert.Zero(t, cache.invalidated)

	s, err = engine.Summary(ctx, KindPost, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countOf(s.Counts, "haha"))
}

// interleavingStore runs during once, right after the first count query
// has read the table and before its result reaches the engine.
type interleavingStore struct {
	*memStore
	fired  atomic.Bool
	during func()
}

func (s *interleavingStore) CountByType(ctx context.Context, kind Kind, targetID uint) (map[string]int64, error) {
	out, err := s.memStore.CountByType(ctx, kind, targetID)
	if s.fired.CompareAndSwap(false, true) {
		s.during()
	}
	return out, err
}

func TestCountReadOvertakenByWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := &interleavingStore{memStore: newMemStore()}
	cache := &mapCache{entries: make(map[uint][]TypeCount)}
	engine := NewEngine(store, nil)
	engine.SetCache(cache)
	store.during = func() {
		_, err := engine.React(ctx, 2, KindPost, 10, "like")
		require.NoError(t, err)
	}

	_, err := engine.Summary(ctx, KindPost, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, store.rowCount())

	s, err := engine.Summary(ctx, KindPost, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countOf(s.Counts, "like"))
	require.NotNil(t, s.UserReaction)
	assert.Equal(t, "like", *s.UserReaction)
	assert.Zero(t, engine.reads.size(), "read tracking is released")
}

func TestLastBroadcastCarriesEveryWrite(t *testing.T) {
	store := newMemStore()
	observer := &recordingObserver{}
	engine := NewEngine(store, nil)
	engine.SetObserver(observer)
	engine.SetCache(&mapCache{entries: make(map[uint][]TypeCount)})

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := engine.React(context.Background(), userID, KindPost, 10, "love")
			assert.NoError(t, err)
		}(uint(100 + i))
	}
	wg.Wait()

	require.Len(t, observer.updates, n)
	assert.Equal(t, int64(n), countOf(observer.updates[n-1], "love"))

	s, err := engine.Summary(context.Background(), KindPost, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(n), countOf(s.Counts, "love"))
	assert.Zero(t, engine.locks.size())
}

func TestReactorsFiltersByType(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(newMemStore(), nil)
	_, _ = engine.React(ctx, 2, KindPost, 10, "like")
	_, _ = engine.React(ctx, 3, KindPost, 10, "angry")

	all, err := engine.Reactors(ctx, KindPost, 10, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	angry, err := engine.Reactors(ctx, KindPost, 10, "angry")
	require.NoError(t, err)
	require.Len(t, angry, 1)
	assert.Equal(t, uint(3), angry[0].UserID)

	_, err = engine.Reactors(ctx, KindPost, 10, "laugh")
	assert.ErrorIs(t, err, ErrInvalidReaction)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("comment")
	require.NoError(t, err)
	assert.Equal(t, KindComment, k)

	_, err = ParseKind("posts")
	assert.ErrorIs(t, err, ErrInvalidReaction)
}
