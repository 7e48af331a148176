// Package services – MaintenanceService
//
// This file implements the bodies of the scheduler-invoked batch jobs: the
// daily low-stock scan, the periodic sales summary, retention cleanup of the
// append-only tables, the no-orders alert, and inactive-customer
// re-engagement. The service holds no clock and no schedule; an external
// runner decides when to call each job and passes the relevant time window,
// so the core keeps no notion of wall-clock time. Jobs go through the same
// repositories and entry points as ordinary callers.
package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/repo"
)

// SalesSummary is the result of one sales-summary run.
type SalesSummary struct {
	Since      time.Time       `json:"since"`
	OrderCount int64           `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// RetentionResult reports how many rows each purge removed.
type RetentionResult struct {
	Cutoff        time.Time `json:"cutoff"`
	Audit         int64     `json:"audit"`
	Activities    int64     `json:"activities"`
	Notifications int64     `json:"notifications"`
}

// MaintenanceService implements the batch-job bodies.
type MaintenanceService struct {
	DB *gorm.DB

	// LowStockThreshold mirrors the pipeline's alert threshold; zero falls
	// back to DefaultLowStockThreshold.
	LowStockThreshold int
	// AlertRoles overrides DefaultAlertRoles when non-empty.
	AlertRoles []string
}

// NewMaintenanceService constructs a MaintenanceService with the pipeline's
// default threshold and roles.
func NewMaintenanceService(db *gorm.DB) *MaintenanceService {
	return &MaintenanceService{DB: db, LowStockThreshold: DefaultLowStockThreshold}
}

// LowStockScan notifies the alert role about every product at or below the
// threshold and returns how many products matched. With no eligible
// recipient the scan still reports the count; sending is skipped.
func (s *MaintenanceService) LowStockScan(ctx context.Context) (int, error) {
	threshold := s.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	products, err := repo.ListProductsBelowStock(ctx, s.DB, threshold)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}
	emp, err := s.alertRecipient(ctx)
	if err != nil {
		return len(products), err
	}
	if emp == nil {
		return len(products), nil
	}
	for _, p := range products {
		msg := "Daily scan: " + p.Name + " stock at " + strconv.Itoa(p.Stock)
		if _, err := repo.CreateNotification(ctx, s.DB, emp.ID, msg, domain.NotificationSystem); err != nil {
			return len(products), err
		}
	}
	return len(products), nil
}

// SalesSummarySince aggregates order count and revenue for orders dated at
// or after since and notifies the alert role with the figures.
func (s *MaintenanceService) SalesSummarySince(ctx context.Context, since time.Time) (*SalesSummary, error) {
	count, err := repo.CountOrdersSince(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	costs, err := repo.OrderCostsSince(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	revenue := decimal.Zero
	for _, c := range costs {
		revenue = revenue.Add(c)
	}
	sum := &SalesSummary{Since: since, OrderCount: count, Revenue: revenue}

	emp, err := s.alertRecipient(ctx)
	if err != nil {
		return nil, err
	}
	if emp != nil {
		msg := "Sales summary since " + since.UTC().Format("2006-01-02") + ": " +
			strconv.FormatInt(count, 10) + " orders, revenue " + revenue.String()
		if _, err := repo.CreateNotification(ctx, s.DB, emp.ID, msg, domain.NotificationSystem); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// RetentionCleanup purges audit records, activity events, and read
// notifications older than cutoff. The pipeline itself never deletes from
// these tables; this job is the single sanctioned ager.
func (s *MaintenanceService) RetentionCleanup(ctx context.Context, cutoff time.Time) (*RetentionResult, error) {
	audit, err := repo.PurgeAuditBefore(ctx, s.DB, cutoff)
	if err != nil {
		return nil, err
	}
	acts, err := repo.PurgeActivitiesBefore(ctx, s.DB, cutoff)
	if err != nil {
		return nil, err
	}
	notifs, err := repo.PurgeNotificationsBefore(ctx, s.DB, cutoff)
	if err != nil {
		return nil, err
	}
	return &RetentionResult{Cutoff: cutoff, Audit: audit, Activities: acts, Notifications: notifs}, nil
}

// NoOrdersAlert emits one system notification when no order is dated at or
// after since. Returns true when the alert condition held.
func (s *MaintenanceService) NoOrdersAlert(ctx context.Context, since time.Time) (bool, error) {
	count, err := repo.CountOrdersSince(ctx, s.DB, since)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	emp, err := s.alertRecipient(ctx)
	if err != nil {
		return true, err
	}
	if emp != nil {
		msg := "No orders recorded since " + since.UTC().Format("2006-01-02")
		if _, err := repo.CreateNotification(ctx, s.DB, emp.ID, msg, domain.NotificationSystem); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Reengagement sends one marketing notification to every client with no
// order dated at or after since, and returns how many were contacted.
func (s *MaintenanceService) Reengagement(ctx context.Context, since time.Time) (int, error) {
	clients, err := repo.ListInactiveClients(ctx, s.DB, since)
	if err != nil {
		return 0, err
	}
	for _, c := range clients {
		msg := "We miss you, " + c.Name + ". Come back for our latest arrivals"
		if _, err := repo.CreateNotification(ctx, s.DB, c.ID, msg, domain.NotificationMarketing); err != nil {
			return 0, err
		}
	}
	return len(clients), nil
}

// alertRecipient resolves the designated alert employee, or nil when the
// role is unstaffed.
func (s *MaintenanceService) alertRecipient(ctx context.Context) (*domain.Employee, error) {
	roles := s.AlertRoles
	if len(roles) == 0 {
		roles = DefaultAlertRoles
	}
	emp, err := repo.FirstEmployeeByRole(ctx, s.DB, roles...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return emp, nil
}
