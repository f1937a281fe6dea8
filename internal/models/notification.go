package models

import "time"

// Notification types
const (
	NotificationComment         = "comment"
	NotificationCommentReaction = "comment_reaction"
	NotificationReaction        = "reaction"
	NotificationMention         = "mention"
	NotificationGeneral         = "general"
)

// Notification is the durable record behind every live notification push
type Notification struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Type           string  `gorm:"size:32;not null" json:"type"`
	Message        string  `gorm:"type:text;not null" json:"message"`
	PostID         *uint   `json:"postId,omitempty"`
	CommentID      *uint   `json:"commentId,omitempty"`
	ReceiverID     uint    `gorm:"not null;index:idx_notifications_receiver_created,priority:1" json:"receiverId"`
	SenderID       uint    `gorm:"not null" json:"senderId"`
	ReactionStatus *string `gorm:"size:16" json:"reactionStatus,omitempty"`
	Read           bool    `gorm:"not null;default:false" json:"read"`

	CreatedAt time.Time `gorm:"index:idx_notifications_receiver_created,priority:2,sort:desc" json:"createdAt"`
}

// ValidNotificationType reports whether t is a known notification type
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationComment, NotificationCommentReaction, NotificationReaction, NotificationMention, NotificationGeneral:
		return true
	}
	return false
}
