// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a product is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The stock-sensitive helpers deserve a note: GetProductForUpdate acquires a
// row-level lock (SELECT ... FOR UPDATE on engines that support it; SQLite's
// single-writer transaction gives the equivalent), so that the pipeline's
// stock-validation-then-decrement sequence cannot race a concurrent order
// against the same product.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateProduct inserts a new catalog row with a UUID primary key.
func CreateProduct(ctx context.Context, db *gorm.DB, name, category string, buy, sell decimal.Decimal, stock int) (*domain.Product, error) {
	p := &domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		BuyPrice:  buy,
		SellPrice: sell,
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct fetches a product by ID, or ErrNotFound if missing.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductForUpdate fetches a product by ID under a row-level write lock.
// Call this only inside a transaction: the lock is held until commit or
// rollback, serializing concurrent order pipelines for the same product.
func GetProductForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock subtracts qty from a product's stock. It is an uncondition-
// al arithmetic update; availability must have been validated beforehand
// under the same transaction's row lock. Returns ErrNotFound when no row
// was touched.
func DecrementStock(ctx context.Context, tx *gorm.DB, id string, qty int) error {
	res := tx.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProducts returns the full catalog ordered by ascending stock, then
// category, the ordering the inventory report exposes.
func ListProducts(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Order("stock ASC, category ASC").
		Find(&out).Error
	return out, err
}

// ListProductsBelowStock returns products whose stock is at or below the
// given threshold, ordered by ascending stock. Used by the low-stock scan.
func ListProductsBelowStock(ctx context.Context, db *gorm.DB, threshold int) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC").
		Find(&out).Error
	return out, err
}
