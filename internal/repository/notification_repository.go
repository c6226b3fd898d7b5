package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ngrabbs/schedule-manager/internal/model"
)

// NotificationRepository handles the pending-notification queue.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListDue returns unsent notifications whose fire time is at or before the
// given instant, oldest first.
func (r *NotificationRepository) ListDue(ctx context.Context, before time.Time) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := r.db.WithContext(ctx).
		Where("sent = ? AND fire_at <= ?", false, before).
		Order("fire_at ASC").
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return notifications, nil
}

// ListForTask returns every notification for a task, sent or not.
func (r *NotificationRepository) ListForTask(ctx context.Context, taskID uint) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("fire_at ASC").
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications for task %d: %w", taskID, err)
	}
	return notifications, nil
}

// MarkSent flags a notification as delivered and records the relay's
// message id. Sent notifications are kept as an audit trail.
func (r *NotificationRepository) MarkSent(ctx context.Context, notificationID uint, relayID string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]any{"sent": true, "relay_id": relayID})
	if res.Error != nil {
		return fmt.Errorf("mark notification %d sent: %w", notificationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	return nil
}

// DeleteUnsentForTask drops every notification for the task that has not yet
// been delivered. Used on reschedule so stale reminders never fire.
func (r *NotificationRepository) DeleteUnsentForTask(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND sent = ?", taskID, false).
		Delete(&model.Notification{}).Error; err != nil {
		return fmt.Errorf("delete unsent notifications for task %d: %w", taskID, err)
	}
	return nil
}
