// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the AuditRecord
// model.
//
// Audit rows are append-only from the pipeline's perspective: this file
// deliberately exposes no update or single-row delete. The only destructive
// operation is the retention purge, which belongs to the out-of-band
// maintenance job, not the pipeline.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// AppendAudit writes one immutable audit record for an order mutation. It
// must be called inside the mutation's transaction so the trail commits or
// rolls back with the order itself.
func AppendAudit(ctx context.Context, tx *gorm.DB, orderID, action string, oldState, newState datatypes.JSONMap) (*domain.AuditRecord, error) {
	rec := &domain.AuditRecord{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Action:    action,
		OldState:  oldState,
		NewState:  newState,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// CountAudit returns the number of audit records for an order.
func CountAudit(ctx context.Context, db *gorm.DB, orderID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AuditRecord{}).
		Where("order_id = ?", orderID).
		Count(&total).Error
	return total, err
}

// ListAuditPage returns a paginated slice of an order's audit trail in
// chronological order (CreatedAt ASC, ID ASC for determinism).
func ListAuditPage(ctx context.Context, db *gorm.DB, orderID string, offset, limit int) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PurgeAuditBefore deletes audit records older than cutoff and reports how
// many rows were removed. Reserved for the retention job.
func PurgeAuditBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.AuditRecord{})
	return res.RowsAffected, res.Error
}
