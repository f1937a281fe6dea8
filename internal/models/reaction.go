package models

import "time"

// Reaction target kinds
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// Reaction is one user's reaction to exactly one post or comment.
// The composite unique index keeps at most one row per (user, target).
type Reaction struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_reactions_owner_target,priority:1" json:"user_id"`
	TargetKind string `gorm:"size:16;not null;uniqueIndex:idx_reactions_owner_target,priority:2;index:idx_reactions_target,priority:1" json:"target_kind"`
	TargetID   uint   `gorm:"not null;uniqueIndex:idx_reactions_owner_target,priority:3;index:idx_reactions_target,priority:2" json:"target_id"`
	Type       string `gorm:"size:16;not null" json:"type"`
	User       *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
