// Package services – ReportService
//
// This file implements the composite read routines: product evaluation,
// customer summary, and the inventory report. They combine the aggregation
// functions with ledger state maintained by the pipeline and contain no
// mutation logic of their own.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Evaluation statuses.
const (
	EvalStatusOK       = "ok"
	EvalStatusNotFound = "not_found"
)

// Stock-health tiers for a single product evaluation.
const (
	StockTierLow    = "Low"    // stock <= 10
	StockTierMedium = "Medium" // stock <= 30
	StockTierGood   = "Good"
)

// Performance tiers derived from lifetime profit.
const (
	PerfTierHigh   = "High"   // profit > 100
	PerfTierMedium = "Medium" // profit > 50
	PerfTierLow    = "Low"
)

// Inventory alert tiers for the full-catalog report.
const (
	AlertTierUrgent = "Urgent" // stock <= 10
	AlertTierLow    = "Low"    // stock <= 30
	AlertTierMedium = "Medium" // stock <= 50
	AlertTierHigh   = "High"
)

// ProductEvaluation is the product evaluation payload. A missing product is
// reported through Status (a status row, not an error) so speculative
// lookups stay cheap for callers.
type ProductEvaluation struct {
	Status           string          `json:"status"`
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name,omitempty"`
	Stock            int             `json:"stock"`
	SoldQuantity     int64           `json:"sold_quantity"`
	OrderCount       int64           `json:"order_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	Profit           decimal.Decimal `json:"profit"`
	AverageOrderCost decimal.Decimal `json:"average_order_cost"`
	StockTier        string          `json:"stock_tier,omitempty"`
	PerformanceTier  string          `json:"performance_tier,omitempty"`
}

// CustomerSummary aggregates a client's purchasing and activity history.
// LastOrderAt is nil when the client has never ordered; nil is the explicit
// "no orders" sentinel.
type CustomerSummary struct {
	ClientID          string                    `json:"client_id"`
	Name              string                    `json:"name"`
	OrderCount        int64                     `json:"order_count"`
	ActivityCount     int64                     `json:"activity_count"`
	TotalSpend        decimal.Decimal           `json:"total_spend"`
	AverageOrderValue decimal.Decimal           `json:"average_order_value"`
	LastOrderAt       *time.Time                `json:"last_order_at,omitempty"`
	TopProducts       []repo.ProductQuantityRow `json:"top_products"`
}

// InventoryLine is one product's row in the inventory report.
type InventoryLine struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Stock          int             `json:"stock"`
	AlertTier      string          `json:"alert_tier"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}

// ReportService exposes the composite read routines.
type ReportService struct {
	DB    *gorm.DB
	Stats *StatsService
}

// NewReportService constructs a ReportService sharing the given stats
// service.
func NewReportService(db *gorm.DB, stats *StatsService) *ReportService {
	return &ReportService{DB: db, Stats: stats}
}

// EvaluateProduct returns current stock, lifetime sales figures, profit and
// average order cost, plus stock-health and performance tiers. An absent
// product yields Status "not_found" with zero figures.
func (s *ReportService) EvaluateProduct(ctx context.Context, productID string) (*ProductEvaluation, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "EvaluateProduct",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	p, err := repo.GetProduct(ctx, s.DB, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ProductEvaluation{Status: EvalStatusNotFound, ProductID: productID,
				Revenue: decimal.Zero, Profit: decimal.Zero, AverageOrderCost: decimal.Zero}, nil
		}
		return nil, err
	}

	sold, err := repo.SoldQuantity(ctx, s.DB, productID)
	if err != nil {
		return nil, err
	}
	orderCount, err := repo.CountOrdersByProduct(ctx, s.DB, productID)
	if err != nil {
		return nil, err
	}
	costRows, err := repo.OrderCostRows(ctx, s.DB, productID)
	if err != nil {
		return nil, err
	}
	revenue := decimal.Zero
	for _, r := range costRows {
		revenue = revenue.Add(r.Cost)
	}
	profit, err := s.Stats.Profit(ctx, productID)
	if err != nil {
		return nil, err
	}
	avg, err := s.Stats.AverageOrderCost(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &ProductEvaluation{
		Status:           EvalStatusOK,
		ProductID:        p.ID,
		Name:             p.Name,
		Stock:            p.Stock,
		SoldQuantity:     sold,
		OrderCount:       orderCount,
		Revenue:          revenue,
		Profit:           profit,
		AverageOrderCost: avg,
		StockTier:        stockTier(p.Stock),
		PerformanceTier:  performanceTier(profit),
	}, nil
}

// Summary returns the customer summary for a client, or ErrClientNotFound.
func (s *ReportService) Summary(ctx context.Context, clientID string) (*CustomerSummary, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(attribute.String("client.id", clientID)),
	)
	defer span.End()

	c, err := repo.GetClient(ctx, s.DB, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	orderCount, lastOrderAt, err := repo.ClientOrderStats(ctx, s.DB, clientID)
	if err != nil {
		return nil, err
	}
	activityCount, err := repo.CountActivities(ctx, s.DB, clientID)
	if err != nil {
		return nil, err
	}
	costs, err := repo.ClientOrderCosts(ctx, s.DB, clientID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c)
	}
	avg := decimal.Zero
	if len(costs) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(costs))))
	}
	top, err := repo.TopProductsByClient(ctx, s.DB, clientID, 3)
	if err != nil {
		return nil, err
	}

	return &CustomerSummary{
		ClientID:          c.ID,
		Name:              c.Name,
		OrderCount:        orderCount,
		ActivityCount:     activityCount,
		TotalSpend:        total,
		AverageOrderValue: avg,
		LastOrderAt:       lastOrderAt,
		TopProducts:       top,
	}, nil
}

// Inventory returns the full-catalog snapshot, ordered by ascending stock
// then category, with alert tiers and per-product inventory value
// (stock * buy_price).
func (s *ReportService) Inventory(ctx context.Context) ([]InventoryLine, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Inventory")
	defer span.End()

	products, err := repo.ListProducts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryLine, 0, len(products))
	for _, p := range products {
		out = append(out, InventoryLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Category:       p.Category,
			Stock:          p.Stock,
			AlertTier:      alertTier(p.Stock),
			InventoryValue: p.BuyPrice.Mul(decimal.NewFromInt(int64(p.Stock))),
		})
	}
	return out, nil
}

// stockTier buckets a product's stock for single-product evaluation.
func stockTier(stock int) string {
	switch {
	case stock <= 10:
		return StockTierLow
	case stock <= 30:
		return StockTierMedium
	default:
		return StockTierGood
	}
}

// performanceTier buckets lifetime profit.
func performanceTier(profit decimal.Decimal) string {
	switch {
	case profit.GreaterThan(decimal.NewFromInt(100)):
		return PerfTierHigh
	case profit.GreaterThan(decimal.NewFromInt(50)):
		return PerfTierMedium
	default:
		return PerfTierLow
	}
}

// alertTier buckets stock for the full-catalog report.
func alertTier(stock int) string {
	switch {
	case stock <= 10:
		return AlertTierUrgent
	case stock <= 30:
		return AlertTierLow
	case stock <= 50:
		return AlertTierMedium
	default:
		return AlertTierHigh
	}
}
