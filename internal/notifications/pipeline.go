// Package notifications persists notifications and pushes them to the
// receiver's live connection when one is registered.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/telemetry"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("notification not found")
	ErrForbidden   = errors.New("notification belongs to another user")
	ErrInvalidType = errors.New("invalid notification type")
)

// Options carries the optional fields of a notification
type Options struct {
	Type           string
	PostID         *uint
	CommentID      *uint
	SenderID       uint
	ReactionStatus string
}

// Notifier is what producers (reactions, comments) depend on
type Notifier interface {
	Notify(ctx context.Context, receiverID uint, message string, opts Options) (*models.Notification, error)
}

// ListQuery pages through a receiver's notifications, newest first
type ListQuery struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// Store persists notifications
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, receiverID uint, q ListQuery) ([]models.Notification, error)
	// GetNotification returns ErrNotFound when absent
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	DeleteNotification(ctx context.Context, id uint) error
	DeleteAllNotifications(ctx context.Context, receiverID uint) (int64, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, receiverID uint) (int64, error)
	CountUnread(ctx context.Context, receiverID uint) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Locator resolves a user to the connection that receives single-target pushes
type Locator interface {
	Lookup(userID uint) (string, bool)
}

// Pusher writes a newNotification event to one connection
type Pusher interface {
	PushNotification(connID string, n *models.Notification) error
}

// Pipeline is the Notifier backed by a Store and an optional live delivery path
type Pipeline struct {
	store   Store
	locator Locator
	pusher  Pusher
}

// NewPipeline creates a pipeline without live delivery; see SetDelivery
func NewPipeline(store Store) *Pipeline {
	return &Pipeline{store: store}
}

// SetDelivery wires the live push path. Call before serving traffic.
func (p *Pipeline) SetDelivery(locator Locator, pusher Pusher) {
	p.locator = locator
	p.pusher = pusher
}

// Notify writes the notification row, then tries a live push. A missing
// sender makes it a no-op. Push problems are logged and never returned.
// Callers are responsible for not notifying users about their own actions.
func (p *Pipeline) Notify(ctx context.Context, receiverID uint, message string, opts Options) (*models.Notification, error) {
	if opts.SenderID == 0 {
		logger.FromContext(ctx).Debug("Skipping notification without sender",
			logger.WithUserID(receiverID),
			zap.String("type", opts.Type))
		return nil, nil
	}
	if opts.Type == "" {
		opts.Type = models.NotificationGeneral
	}
	if !models.ValidNotificationType(opts.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, opts.Type)
	}

	ctx, span := telemetry.GetBusinessEvents().TraceNotify(ctx, opts.Type, receiverID)
	defer span.End()

	n := &models.Notification{
		Type:       opts.Type,
		Message:    message,
		PostID:     opts.PostID,
		CommentID:  opts.CommentID,
		ReceiverID: receiverID,
		SenderID:   opts.SenderID,
	}
	if opts.ReactionStatus != "" {
		status := opts.ReactionStatus
		n.ReactionStatus = &status
	}

	if err := p.store.CreateNotification(ctx, n); err != nil {
		err = fmt.Errorf("failed to create notification: %w", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	metrics.App().NotificationsCreated.WithLabelValues(n.Type).Inc()

	p.deliver(ctx, n)
	return n, nil
}

func (p *Pipeline) deliver(ctx context.Context, n *models.Notification) {
	log := logger.FromContext(ctx)
	if p.locator == nil || p.pusher == nil {
		return
	}

	connID, ok := p.locator.Lookup(n.ReceiverID)
	if !ok {
		metrics.App().NotificationPushes.WithLabelValues("offline").Inc()
		log.Debug("Receiver offline, notification stored only",
			logger.WithUserID(n.ReceiverID),
			zap.Uint("notification_id", n.ID))
		return
	}

	if err := p.pusher.PushNotification(connID, n); err != nil {
		metrics.App().NotificationPushes.WithLabelValues("failed").Inc()
		log.Warn("Live notification push failed",
			logger.WithUserID(n.ReceiverID),
			logger.WithConnID(connID),
			zap.Error(err))
		return
	}
	metrics.App().NotificationPushes.WithLabelValues("sent").Inc()
}

// List returns the receiver's notifications, newest first
func (p *Pipeline) List(ctx context.Context, receiverID uint, q ListQuery) ([]models.Notification, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	return p.store.ListNotifications(ctx, receiverID, q)
}

// owned loads a notification and checks that requester received it
func (p *Pipeline) owned(ctx context.Context, id, requesterID uint) (*models.Notification, error) {
	n, err := p.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ReceiverID != requesterID {
		return nil, ErrForbidden
	}
	return n, nil
}

// Delete removes one notification owned by requester
func (p *Pipeline) Delete(ctx context.Context, id, requesterID uint) error {
	if _, err := p.owned(ctx, id, requesterID); err != nil {
		return err
	}
	return p.store.DeleteNotification(ctx, id)
}

// DeleteAll clears every notification of receiver and returns how many went
func (p *Pipeline) DeleteAll(ctx context.Context, receiverID uint) (int64, error) {
	return p.store.DeleteAllNotifications(ctx, receiverID)
}

// MarkRead flags one notification owned by requester as read
func (p *Pipeline) MarkRead(ctx context.Context, id, requesterID uint) (*models.Notification, error) {
	n, err := p.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := p.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

// MarkAllRead flags every unread notification of receiver as read
func (p *Pipeline) MarkAllRead(ctx context.Context, receiverID uint) (int64, error) {
	return p.store.MarkAllRead(ctx, receiverID)
}

// UnreadCount returns the number of unread notifications of receiver
func (p *Pipeline) UnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	return p.store.CountUnread(ctx, receiverID)
}
