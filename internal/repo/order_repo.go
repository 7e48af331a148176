// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// CreateOrder inserts a new order row. The caller (the pipeline) has already
// reconciled the cost; this function persists exactly what it is given.
func CreateOrder(ctx context.Context, tx *gorm.DB, productID, clientID, employeeID string, qty int, cost decimal.Decimal, date time.Time) (*domain.Order, error) {
	o := &domain.Order{
		ID:         uuid.NewString(),
		ProductID:  productID,
		ClientID:   clientID,
		EmployeeID: employeeID,
		Quantity:   qty,
		Cost:       cost,
		Date:       date,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder fetches an order by ID, or ErrNotFound if missing.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// SaveOrder persists the given order's current field values. Used by the
// update path after the service applied the caller's new fields.
func SaveOrder(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	return tx.WithContext(ctx).Save(o).Error
}

// DeleteOrder removes an order row. Returns ErrNotFound when nothing was
// deleted.
func DeleteOrder(ctx context.Context, tx *gorm.DB, id string) error {
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&domain.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOrders returns the total number of orders for a client.
func CountOrders(ctx context.Context, db *gorm.DB, clientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("client_id = ?", clientID).
		Count(&total).Error
	return total, err
}

// CountOrdersByProduct returns the number of orders placed for a product.
func CountOrdersByProduct(ctx context.Context, db *gorm.DB, productID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("product_id = ?", productID).
		Count(&total).Error
	return total, err
}

// ListOrdersPage returns a paginated slice of a client's orders ordered by
// date descending (ID ascending as a deterministic tie-break).
func ListOrdersPage(ctx context.Context, db *gorm.DB, clientID string, offset, limit int) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("date DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
