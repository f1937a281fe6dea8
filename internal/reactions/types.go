// Package reactions implements the per-user reaction toggle on posts and
// comments, with counts, reactor lists and owner notifications.
package reactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillhub/backend/internal/models"
)

// Kind is the type of entity a reaction targets
type Kind string

const (
	KindPost    Kind = models.TargetPost
	KindComment Kind = models.TargetComment
)

// Outcome tags the transition a toggle produced
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
	OutcomeRemoved Outcome = "removed"
)

var (
	ErrInvalidReaction = errors.New("invalid reaction")
	ErrTargetNotFound  = errors.New("reaction target not found")
	ErrNoReaction      = errors.New("no reaction to remove")
	// ErrDuplicate is returned by a Store when the (user, kind, target) row already exists
	ErrDuplicate = errors.New("reaction already exists")
)

var typesByKind = map[Kind][]string{
	KindPost:    {"like", "love", "haha", "sad", "angry"},
	KindComment: {"like", "dislike", "laugh"},
}

// ParseKind converts the route or event form of a target kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := typesByKind[k]; !ok {
		return "", fmt.Errorf("%w: unknown target kind %q", ErrInvalidReaction, s)
	}
	return k, nil
}

// Types returns the reaction types accepted for kind, in display order
func Types(kind Kind) []string {
	return append([]string(nil), typesByKind[kind]...)
}

// ValidType reports whether t is an accepted reaction type for kind
func ValidType(kind Kind, t string) bool {
	for _, v := range typesByKind[kind] {
		if v == t {
			return true
		}
	}
	return false
}

// State is a user's reaction state on one target
type State struct {
	Reacted bool   `json:"reacted"`
	Type    string `json:"type,omitempty"`
}

// Result describes a completed toggle
type Result struct {
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome"`
	// Reaction is the row after the transition; nil when removed
	Reaction *models.Reaction `json:"reaction"`
	// Previous is the type held before an update or removal
	Previous string `json:"-"`
}

// TypeCount is one entry of a zero-filled reaction summary
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Summary is the aggregate view of a target plus the requester's own reaction
type Summary struct {
	Counts       []TypeCount `json:"reactions"`
	UserReaction *string     `json:"userReaction"`
}

// Target is the reacted-to entity as the engine needs it
type Target struct {
	Kind    Kind
	ID      uint
	OwnerID uint
	// PostID is the enclosing post; equals ID for post targets
	PostID uint
}

// Store is the persistence the engine runs on
type Store interface {
	// FindTarget returns ErrTargetNotFound when the entity does not exist
	FindTarget(ctx context.Context, kind Kind, id uint) (*Target, error)
	// FindReaction returns nil, nil when the user has no reaction on the target
	FindReaction(ctx context.Context, userID uint, kind Kind, targetID uint) (*models.Reaction, error)
	CreateReaction(ctx context.Context, reaction *models.Reaction) error
	UpdateReactionType(ctx context.Context, reactionID uint, reactionType string) error
	DeleteReaction(ctx context.Context, reactionID uint) error
	CountByType(ctx context.Context, kind Kind, targetID uint) (map[string]int64, error)
	ListReactors(ctx context.Context, kind Kind, targetID uint, reactionType string) ([]models.Reaction, error)
	Username(ctx context.Context, userID uint) (string, error)
}

// Observer is told about every committed transition with fresh counts
type Observer interface {
	ReactionsChanged(ctx context.Context, kind Kind, targetID uint, counts []TypeCount)
}

// CountCache caches zero-filled counts per target
type CountCache interface {
	Get(ctx context.Context, kind Kind, targetID uint) ([]TypeCount, bool)
	Set(ctx context.Context, kind Kind, targetID uint, counts []TypeCount)
	Invalidate(ctx context.Context, kind Kind, targetID uint)
}
