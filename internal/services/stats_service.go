// Package services – StatsService
//
// This file implements the three deterministic aggregation functions the
// pipeline and reports depend on: average order cost per product, profit
// (per product or global), and employee commission. All three are pure
// reads; arithmetic happens in decimal so results are exact and the global
// profit equals the sum of per-product profits to the digit.
package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/repo"
)

// StatsService exposes the read-only aggregation functions.
type StatsService struct {
	DB *gorm.DB
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// AverageOrderCost returns the mean of cost/quantity across a product's
// orders. A product with no orders (including an unknown product ID) yields
// zero; the two cases are deliberately indistinguishable.
func (s *StatsService) AverageOrderCost(ctx context.Context, productID string) (decimal.Decimal, error) {
	rows, err := repo.OrderCostRows(ctx, s.DB, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return meanUnitCost(rows), nil
}

// Profit returns sum((sell_price-buy_price)*quantity) over a product's
// orders, or over every order when productID is empty. Zero with no matching
// rows; negative profit is valid output, not an error.
func (s *StatsService) Profit(ctx context.Context, productID string) (decimal.Decimal, error) {
	rows, err := repo.ProfitRows(ctx, s.DB, productID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.SellPrice.Sub(r.BuyPrice).Mul(decimal.NewFromInt(int64(r.Quantity))))
	}
	return total, nil
}

// EmployeeCommission returns sum(cost over the employee's orders) * rate.
// Zero for an employee with no orders. Rate bounds are the caller's
// responsibility.
func (s *StatsService) EmployeeCommission(ctx context.Context, employeeID string, rate decimal.Decimal) (decimal.Decimal, error) {
	costs, err := repo.EmployeeOrderCosts(ctx, s.DB, employeeID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c)
	}
	return total.Mul(rate), nil
}
