// Package services – NotificationService
//
// This file implements the notification consumer surface: paginated listing
// per recipient and the read-flag flip, which is the single mutation the data
// model allows on a notification after the pipeline or fan-out stage created
// it.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/repo"
)

// NotificationService exposes the notification read/ack surface.
type NotificationService struct {
	DB *gorm.DB
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// ListPage returns a page of a recipient's notifications (newest first) and
// the total count. unreadOnly restricts both to unread rows.
func (s *NotificationService) ListPage(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountNotifications(ctx, s.DB, recipientID, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Notification{}, 0, nil
	}
	items, err := repo.ListNotificationsPage(ctx, s.DB, recipientID, offset, pageSize, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead flips a notification's read flag, or ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	err := repo.MarkNotificationRead(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
