package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/quillhub/backend/internal/models"
)

type memStore struct {
	mu        sync.Mutex
	nextID    uint
	rows      map[uint]*models.Notification
	createErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uint]*models.Notification)}
}

func (s *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	n.ID = s.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().Add(time.Duration(n.ID) * time.Millisecond)
	}
	cp := *n
	s.rows[n.ID] = &cp
	return nil
}

func (s *memStore) ListNotifications(_ context.Context, receiverID uint, q ListQuery) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.rows {
		if n.ReceiverID != receiverID || (q.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) GetNotification(_ context.Context, id uint) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *memStore) DeleteNotification(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *memStore) DeleteAllNotifications(_ context.Context, receiverID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.ReceiverID == receiverID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) MarkRead(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		row.Read = true
	}
	return nil
}

func (s *memStore) MarkAllRead(_ context.Context, receiverID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.ReceiverID == receiverID && !row.Read {
			row.Read = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUnread(_ context.Context, receiverID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.ReceiverID == receiverID && !row.Read {
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.Read && row.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeLocator map[uint]string

func (f fakeLocator) Lookup(userID uint) (string, bool) {
	c, ok := f[userID]
	return c, ok
}

type pushed struct {
	connID string
	n      models.Notification
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
	err  error
}

func (f *fakePusher) PushNotification(connID string, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, pushed{connID: connID, n: *n})
	return nil
}

var errStoreDown = errors.New("connection refused")
