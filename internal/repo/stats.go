// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the row-fetch queries behind the
// aggregation functions (average order cost, profit, commission) and the
// composite reports.
//
// Monetary figures come back as raw rows and are summed by the service layer
// with shopspring/decimal rather than SQL SUM(): SQLite stores decimal
// columns with text affinity, and exact-equality properties such as
// "global profit equals the sum of per-product profits" must not depend on
// driver float coercion. Integer aggregates (quantities, counts) stay in SQL.
package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// OrderCostRow is one order's cost and quantity, used for per-unit means.
type OrderCostRow struct {
	Cost     decimal.Decimal
	Quantity int
}

// ProfitRow pairs an order's quantity with its product's unit prices.
type ProfitRow struct {
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Quantity  int
}

// ProductQuantityRow is a per-product quantity rollup for top-N queries.
type ProductQuantityRow struct {
	ProductID string
	Name      string
	Quantity  int
}

// OrderCostRows returns (cost, quantity) for every order of a product.
// An unknown product simply yields no rows; callers treat that as zero.
func OrderCostRows(ctx context.Context, db *gorm.DB, productID string) ([]OrderCostRow, error) {
	var out []OrderCostRow
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("cost", "quantity").
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Scan(&out).Error
	return out, err
}

// ProfitRows returns (buy_price, sell_price, quantity) for every order of a
// product, or for every order in the ledger when productID is empty.
func ProfitRows(ctx context.Context, db *gorm.DB, productID string) ([]ProfitRow, error) {
	q := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("products.buy_price", "products.sell_price", "orders.quantity").
		Joins("JOIN products ON products.id = orders.product_id")
	if productID != "" {
		q = q.Where("orders.product_id = ?", productID)
	}
	var out []ProfitRow
	err := q.Scan(&out).Error
	return out, err
}

// EmployeeOrderCosts returns the cost of every order handled by an employee.
func EmployeeOrderCosts(ctx context.Context, db *gorm.DB, employeeID string) ([]decimal.Decimal, error) {
	var rows []struct {
		Cost decimal.Decimal
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("cost").
		Where("employee_id = ?", employeeID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cost)
	}
	return out, nil
}

// SoldQuantity returns the lifetime quantity sold for a product.
func SoldQuantity(ctx context.Context, db *gorm.DB, productID string) (int64, error) {
	var row struct {
		Total int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Total, err
}

// ClientOrderStats returns a client's order count and, when orders exist,
// the date of the most recent one (nil otherwise).
func ClientOrderStats(ctx context.Context, db *gorm.DB, clientID string) (count int64, lastOrderAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Order{}).Where("client_id = ?", clientID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest order date (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Date time.Time
	}
	if err = q.Select("date").Order("date DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Date, nil
}

// ClientOrderCosts returns the cost of every order placed by a client.
func ClientOrderCosts(ctx context.Context, db *gorm.DB, clientID string) ([]decimal.Decimal, error) {
	var rows []struct {
		Cost decimal.Decimal
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("cost").
		Where("client_id = ?", clientID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cost)
	}
	return out, nil
}

// TopProductsByClient returns the client's top-n products by total quantity
// purchased. Tie order among equal quantities follows database order and is
// deliberately unspecified.
func TopProductsByClient(ctx context.Context, db *gorm.DB, clientID string, n int) ([]ProductQuantityRow, error) {
	var out []ProductQuantityRow
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("orders.product_id", "products.name", "SUM(orders.quantity) AS quantity").
		Joins("JOIN products ON products.id = orders.product_id").
		Where("orders.client_id = ?", clientID).
		Group("orders.product_id, products.name").
		Order("quantity DESC").
		Limit(n).
		Scan(&out).Error
	return out, err
}

// CountOrdersSince returns the number of orders dated at or after since.
// The daily no-orders alert fires when this is zero.
func CountOrdersSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("date >= ?", since).
		Count(&total).Error
	return total, err
}

// OrderCostsSince returns the cost of every order dated at or after since,
// for the periodic sales summary.
func OrderCostsSince(ctx context.Context, db *gorm.DB, since time.Time) ([]decimal.Decimal, error) {
	var rows []struct {
		Cost decimal.Decimal
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("cost").
		Where("date >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cost)
	}
	return out, nil
}

// ListInactiveClients returns clients with no order dated at or after since.
// Clients who never ordered at all are included.
func ListInactiveClients(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.Client, error) {
	var out []domain.Client
	err := db.WithContext(ctx).
		Where("id NOT IN (?)", db.
			Model(&domain.Order{}).
			Select("client_id").
			Where("date >= ?", since)).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
