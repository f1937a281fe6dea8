package websocket

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/quillhub/backend/internal/models"
)

var (
	// ErrUnknownEvent is returned for message types outside the inbound union
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload wraps decode and validation failures
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrIdentityMismatch is returned when a payload names a user other than the connection's
	ErrIdentityMismatch = errors.New("payload identity does not match connection")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// InboundEvent is one of the client events below
type InboundEvent interface {
	EventType() string
}

// UserOnline marks the connection as the user's notification target
type UserOnline struct {
	UserID FlexibleID `validate:"required"`
}

// Register adds the connection to the user's connection set
type Register struct {
	UserID FlexibleID `validate:"required"`
}

// JoinPost moves the connection into a post's room
type JoinPost struct {
	PostID FlexibleID `validate:"required"`
}

// LeavePost removes the connection from a post's room
type LeavePost struct {
	PostID FlexibleID `validate:"required"`
}

// CommentBody is the client-supplied part of a new comment
type CommentBody struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// NewComment posts a comment through the socket
type NewComment struct {
	PostID  FlexibleID  `json:"postId" validate:"required"`
	Comment CommentBody `json:"comment"`
}

// ReactToPost toggles a reaction on a post
type ReactToPost struct {
	PostID FlexibleID `json:"postId" validate:"required"`
	UserID FlexibleID `json:"userId,omitempty"`
	Type   string     `json:"type" validate:"required,oneof=like love haha sad angry"`
}

// ReactToComment toggles a reaction on a comment
type ReactToComment struct {
	CommentID FlexibleID `json:"commentId" validate:"required"`
	UserID    FlexibleID `json:"userId,omitempty"`
	Type      string     `json:"type" validate:"required,oneof=like dislike laugh"`
}

func (UserOnline) EventType() string     { return MessageTypeUserOnline }
func (Register) EventType() string       { return MessageTypeRegister }
func (JoinPost) EventType() string       { return MessageTypeJoinPost }
func (LeavePost) EventType() string      { return MessageTypeLeavePost }
func (NewComment) EventType() string     { return MessageTypeNewComment }
func (ReactToPost) EventType() string    { return MessageTypeReactToPost }
func (ReactToComment) EventType() string { return MessageTypeReactToComment }

// InboundTypes lists every client event type
var InboundTypes = []string{
	MessageTypeUserOnline,
	MessageTypeRegister,
	MessageTypeJoinPost,
	MessageTypeLeavePost,
	MessageTypeNewComment,
	MessageTypeReactToPost,
	MessageTypeReactToComment,
}

// DecodeInbound converts a message into its typed, validated event
func DecodeInbound(msg *Message) (InboundEvent, error) {
	var (
		ev  InboundEvent
		err error
	)
	switch msg.Type {
	case MessageTypeUserOnline:
		var e UserOnline
		err = msg.ParsePayload(&e.UserID)
		ev = e
	case MessageTypeRegister:
		var e Register
		err = msg.ParsePayload(&e.UserID)
		ev = e
	case MessageTypeJoinPost:
		var e JoinPost
		err = msg.ParsePayload(&e.PostID)
		ev = e
	case MessageTypeLeavePost:
		var e LeavePost
		err = msg.ParsePayload(&e.PostID)
		ev = e
	case MessageTypeNewComment:
		var e NewComment
		err = msg.ParsePayload(&e)
		ev = e
	case MessageTypeReactToPost:
		var e ReactToPost
		err = msg.ParsePayload(&e)
		ev = e
	case MessageTypeReactToComment:
		var e ReactToComment
		err = msg.ParsePayload(&e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Type, err)
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Type, err)
	}
	return ev, nil
}

// Outbound payloads

// NotificationPayload is the newNotification body
type NotificationPayload struct {
	ID             uint    `json:"id"`
	Message        string  `json:"message"`
	CreatedAt      string  `json:"createdAt"`
	Type           string  `json:"type"`
	PostID         *uint   `json:"postId,omitempty"`
	CommentID      *uint   `json:"commentId,omitempty"`
	SenderID       uint    `json:"senderId"`
	ReactionStatus *string `json:"reactionStatus,omitempty"`
	Read           bool    `json:"read"`
}

// NewNotificationPayload projects a stored notification for the wire
func NewNotificationPayload(n *models.Notification) NotificationPayload {
	return NotificationPayload{
		ID:             n.ID,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Type:           n.Type,
		PostID:         n.PostID,
		CommentID:      n.CommentID,
		SenderID:       n.SenderID,
		ReactionStatus: n.ReactionStatus,
		Read:           n.Read,
	}
}

// MentionPayload is the mention body
type MentionPayload struct {
	Message string `json:"message"`
	PostID  uint   `json:"postId"`
}

// CommentPayload is the receive_comment body
type CommentPayload struct {
	ID        uint           `json:"id"`
	Text      string         `json:"text"`
	PostID    uint           `json:"postId"`
	CreatedAt string         `json:"createdAt"`
	Author    *models.Author `json:"author"`
}

// NewCommentPayload projects a stored comment for the wire
func NewCommentPayload(c *models.Comment) CommentPayload {
	p := CommentPayload{
		ID:        c.ID,
		Text:      c.Text,
		PostID:    c.PostID,
		CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if c.Author != nil {
		p.Author = &models.Author{ID: c.Author.ID, Name: c.Author.Name, Username: c.Author.Username}
	}
	return p
}

// ReactionCount mirrors reactions.TypeCount on the wire
type ReactionCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// PostReactionUpdate is the post-reaction-update body
type PostReactionUpdate struct {
	PostID    uint            `json:"postId"`
	Reactions []ReactionCount `json:"reactions"`
}

// CommentReactionUpdate is the comment-reaction-update body
type CommentReactionUpdate struct {
	CommentID uint            `json:"commentId"`
	Reactions []ReactionCount `json:"reactions"`
}
