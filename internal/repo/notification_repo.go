// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// CreateNotification inserts a notification addressed to recipientID.
func CreateNotification(ctx context.Context, db *gorm.DB, recipientID, message, typ string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Message:     message,
		Type:        typ,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// CountNotifications returns the number of notifications for a recipient,
// optionally restricted to unread ones.
func CountNotifications(ctx context.Context, db *gorm.DB, recipientID string, unreadOnly bool) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListNotificationsPage returns a paginated slice of a recipient's
// notifications, newest first. unreadOnly applies the same predicate as
// CountNotifications so offsets stay consistent with the reported total.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, recipientID string, offset, limit int, unreadOnly bool) ([]domain.Notification, error) {
	q := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []domain.Notification
	err := q.
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkNotificationRead flips the read flag, the single mutation the data
// model allows on a notification. Returns ErrNotFound when no row matched.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeNotificationsBefore deletes read notifications older than cutoff.
// Reserved for the retention job; unread rows are kept regardless of age.
func PurgeNotificationsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}
