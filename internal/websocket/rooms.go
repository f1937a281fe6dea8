package websocket

import (
	"sort"
	"sync"

	"github.com/quillhub/backend/internal/metrics"
)

// roomSender is the part of the hub the tracker broadcasts through
type roomSender interface {
	SendToConns(connIDs []string, message *Message)
}

// RoomTracker tracks which connections view which post. A connection is in
// at most one room; joining another room leaves the previous one. Counts are
// recomputed from membership and sent to the room's members on every change.
type RoomTracker struct {
	mu      sync.Mutex
	rooms   map[uint]map[string]struct{}
	current map[string]uint
	sender  roomSender
}

// NewRoomTracker creates a tracker that broadcasts through sender
func NewRoomTracker(sender roomSender) *RoomTracker {
	return &RoomTracker{
		rooms:   make(map[uint]map[string]struct{}),
		current: make(map[string]uint),
		sender:  sender,
	}
}

// Join moves connID into postID's room
func (t *RoomTracker) Join(connID string, postID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.current[connID]; ok && prev != postID {
		t.remove(connID, prev)
		t.announce(prev)
	}

	members, ok := t.rooms[postID]
	if !ok {
		members = make(map[string]struct{})
		t.rooms[postID] = members
	}
	members[connID] = struct{}{}
	t.current[connID] = postID
	t.announce(postID)
	t.observe()
}

// Leave removes connID from postID's room
func (t *RoomTracker) Leave(connID string, postID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leave(connID, postID)
}

// OnDisconnect leaves whatever room connID was in
func (t *RoomTracker) OnDisconnect(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if postID, ok := t.current[connID]; ok {
		t.leave(connID, postID)
	}
}

func (t *RoomTracker) leave(connID string, postID uint) {
	if _, ok := t.rooms[postID][connID]; !ok {
		return
	}
	t.remove(connID, postID)
	if t.current[connID] == postID {
		delete(t.current, connID)
	}
	t.announce(postID)
	t.observe()
}

// remove drops connID from a room and deletes the room when it empties
func (t *RoomTracker) remove(connID string, postID uint) {
	members := t.rooms[postID]
	delete(members, connID)
	if len(members) == 0 {
		delete(t.rooms, postID)
	}
}

// announce sends the current count to the room. Runs under t.mu so counts
// reach members in the order membership changed.
func (t *RoomTracker) announce(postID uint) {
	members := t.rooms[postID]
	if len(members) == 0 || t.sender == nil {
		return
	}
	t.sender.SendToConns(sortedKeys(members), NewMessage(MessageTypeViewerCount, len(members)))
}

func (t *RoomTracker) observe() {
	metrics.App().RoomsActive.Set(float64(len(t.rooms)))
	metrics.App().RoomViewers.Set(float64(len(t.current)))
}

// ViewerCount returns the number of connections viewing postID
func (t *RoomTracker) ViewerCount(postID uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms[postID])
}

// Members returns the connections viewing postID
func (t *RoomTracker) Members(postID uint) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.rooms[postID])
}

// CurrentRoom returns the post connID is viewing
func (t *RoomTracker) CurrentRoom(connID string) (uint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	postID, ok := t.current[connID]
	return postID, ok
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
