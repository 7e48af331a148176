// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ActivityEvent model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// CreateActivity inserts one activity event. Client and product references
// are nullable; pass nil for events not tied to a client or product.
func CreateActivity(ctx context.Context, db *gorm.DB, clientID, productID *string, typ string, props datatypes.JSONMap) (*domain.ActivityEvent, error) {
	ev := &domain.ActivityEvent{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		ProductID:  productID,
		Type:       typ,
		Properties: props,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// CountActivities returns the number of activity events for a client.
func CountActivities(ctx context.Context, db *gorm.DB, clientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ActivityEvent{}).
		Where("client_id = ?", clientID).
		Count(&total).Error
	return total, err
}

// ListActivitiesPage returns a paginated slice of a client's activity,
// newest first.
func ListActivitiesPage(ctx context.Context, db *gorm.DB, clientID string, offset, limit int) ([]domain.ActivityEvent, error) {
	var out []domain.ActivityEvent
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LastActivityAt returns the timestamp of a client's most recent activity
// event, or nil when the client has none.
func LastActivityAt(ctx context.Context, db *gorm.DB, clientID string) (*time.Time, error) {
	var row struct {
		CreatedAt time.Time
	}
	q := db.WithContext(ctx).
		Model(&domain.ActivityEvent{}).
		Where("client_id = ?", clientID)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if err := q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row.CreatedAt, nil
}

// PurgeActivitiesBefore deletes activity events older than cutoff. Reserved
// for the retention job.
func PurgeActivitiesBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.ActivityEvent{})
	return res.RowsAffected, res.Error
}
