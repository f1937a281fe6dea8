// Package comments creates and deletes comments and runs the publish flow
// shared by the HTTP API and the socket channel.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/mentions"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/posts"
	"github.com/quillhub/backend/internal/telemetry"
	"go.uber.org/zap"
)

const maxTextLength = 5000

var (
	ErrPostNotFound    = posts.ErrNotFound
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyText       = errors.New("comment text is required")
	ErrTextTooLong     = fmt.Errorf("comment text exceeds %d characters", maxTextLength)
	ErrForbidden       = errors.New("not allowed to modify this comment")
)

// Store persists comments and resolves the users they reference
type Store interface {
	// FindPost returns ErrPostNotFound when absent
	FindPost(ctx context.Context, postID uint) (*models.Post, error)
	// CreateComment inserts the comment and loads its Author
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error)
	// GetComment returns ErrCommentNotFound when absent
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uint) error
	// UsersByUsernames matches lower-cased handles case-insensitively
	UsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
}

// Publisher pushes comment events to live connections
type Publisher interface {
	CommentCreated(ctx context.Context, comment *models.Comment)
	Mentioned(ctx context.Context, userID uint, message string, postID uint)
}

// Source labels where a comment came from
type Source string

const (
	SourceHTTP      Source = "http"
	SourceWebSocket Source = "websocket"
)

// Service creates comments and fans out their side effects
type Service struct {
	store     Store
	notifier  notifications.Notifier
	publisher Publisher
}

// NewService creates a comment service
func NewService(store Store, notifier notifications.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// SetPublisher wires the live event path. Call before serving traffic.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// Create stores a comment by actor on postID, then notifies the post owner,
// resolves mentions and publishes the comment to the post's room.
func (s *Service) Create(ctx context.Context, actorID, postID uint, text string, source Source) (_ *models.Comment, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceCreateComment(ctx, postID, actorID, string(source))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len([]rune(text)) > maxTextLength {
		return nil, ErrTextTooLong
	}

	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{Text: text, PostID: postID, AuthorID: actorID}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	metrics.App().CommentsCreated.WithLabelValues(string(source)).Inc()

	actorName := authorName(comment)
	log := logger.FromContext(ctx).With(logger.WithPostID(postID), logger.WithCommentID(comment.ID))

	if post.AuthorID != actorID && s.notifier != nil {
		msg := fmt.Sprintf("%s commented on your post", actorName)
		if _, err := s.notifier.Notify(ctx, post.AuthorID, msg, notifications.Options{
			Type:      models.NotificationComment,
			PostID:    &comment.PostID,
			CommentID: &comment.ID,
			SenderID:  actorID,
		}); err != nil {
			log.Warn("Failed to notify post owner", zap.Error(err))
		}
	}

	s.notifyMentions(ctx, log, actorID, actorName, comment)

	if s.publisher != nil {
		s.publisher.CommentCreated(ctx, comment)
	}
	return comment, nil
}

func (s *Service) notifyMentions(ctx context.Context, log *zap.Logger, actorID uint, actorName string, comment *models.Comment) {
	handles := mentions.Normalize(mentions.Extract(comment.Text))
	if len(handles) == 0 {
		return
	}

	users, err := s.store.UsersByUsernames(ctx, handles)
	if err != nil {
		log.Warn("Failed to resolve mentions", zap.Strings("handles", handles), zap.Error(err))
		return
	}

	msg := fmt.Sprintf("%s mentioned you in a comment", actorName)
	for _, u := range users {
		if u.ID == actorID {
			continue
		}
		metrics.App().MentionsResolved.Inc()
		if s.notifier != nil {
			if _, err := s.notifier.Notify(ctx, u.ID, msg, notifications.Options{
				Type:      models.NotificationMention,
				PostID:    &comment.PostID,
				CommentID: &comment.ID,
				SenderID:  actorID,
			}); err != nil {
				log.Warn("Failed to store mention notification", logger.WithUserID(u.ID), zap.Error(err))
			}
		}
		if s.publisher != nil {
			s.publisher.Mentioned(ctx, u.ID, msg, comment.PostID)
		}
	}
}

func authorName(c *models.Comment) string {
	if c.Author != nil {
		if c.Author.Username != "" {
			return c.Author.Username
		}
		if c.Author.Name != "" {
			return c.Author.Name
		}
	}
	return "Someone"
}

// List returns a post's comments, oldest first
func (s *Service) List(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error) {
	if _, err := s.store.FindPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, postID, limit, offset)
}

// Delete removes a comment when requester wrote it or is an admin
func (s *Service) Delete(ctx context.Context, commentID, requesterID uint, isAdmin bool) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != requesterID && !isAdmin {
		return ErrForbidden
	}
	return s.store.DeleteComment(ctx, commentID)
}
