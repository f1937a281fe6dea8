package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/notifications"
	"gorm.io/gorm"
)

// NotificationRepository is the gorm-backed notifications.Store
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts a notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// ListNotifications lists a receiver's notifications newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, receiverID uint, q notifications.ListQuery) ([]models.Notification, error) {
	var list []models.Notification
	db := r.db.WithContext(ctx).Where("receiver_id = ?", receiverID)
	if q.UnreadOnly {
		db = db.Where("read = ?", false)
	}
	err := db.Order("created_at DESC, id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&list).Error
	return list, err
}

// GetNotification gets a notification by ID
func (r *NotificationRepository) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notifications.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNotification removes a notification
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Notification{}, id).Error
}

// DeleteAllNotifications clears a receiver's notifications
func (r *NotificationRepository) DeleteAllNotifications(ctx context.Context, receiverID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("receiver_id = ?", receiverID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
}

// MarkAllRead flags every unread notification of a receiver as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, receiverID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// CountUnread counts a receiver's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, receiverID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&count).Error
	return count, err
}

// DeleteReadBefore removes read notifications created before cutoff
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
