package repo

import (
	"context"
	"fmt"

	"checkinDesk/internal/model"
)

func (r *repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *repository) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]model.Notification, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if unreadOnly {
		q = q.Where(map[string]any{"read": false})
	}
	var out []model.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (r *repository) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).Where(map[string]any{"read": false}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *repository) MarkNotificationRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
