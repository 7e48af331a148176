package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ordersvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Product{}, &domain.Client{}, &domain.Employee{}, &domain.Address{},
		&domain.Order{}, &domain.AuditRecord{}, &domain.Notification{},
		&domain.ActivityEvent{}, &domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// seedCatalog inserts a product, client, and employee and returns them.
func seedCatalog(t *testing.T, db *gorm.DB, buy, sell string, stock int) (*domain.Product, *domain.Client, *domain.Employee) {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{ID: uuid.NewString(), Name: "Desk Lamp", Category: "Lighting",
		BuyPrice: d(buy), SellPrice: d(sell), Stock: stock, CreatedAt: now}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	c := &domain.Client{ID: uuid.NewString(), Name: "Ada", Email: uuid.NewString() + "@example.com", CreatedAt: now}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	e := &domain.Employee{ID: uuid.NewString(), Name: "Sam", Email: uuid.NewString() + "@example.com",
		Role: "clerk", CreatedAt: now}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	return p, c, e
}

func newOrderSvc(db *gorm.DB) *OrderService {
	return NewOrderService(db, NewActivityService(db))
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestInsert_ConstraintViolation(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)

	_, err := svc.Insert(context.Background(), OrderInput{
		ProductID: "p", ClientID: "c", EmployeeID: "e", Quantity: 0, Cost: d("10"),
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for zero quantity, got %v", err)
	}

	_, err = svc.Insert(context.Background(), OrderInput{
		ProductID: "p", ClientID: "c", EmployeeID: "e", Quantity: 1, Cost: d("-1"),
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for negative cost, got %v", err)
	}
}

func TestInsert_MissingReferences(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	_, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: "missing", EmployeeID: e.ID, Quantity: 1, Cost: d("20"),
	})
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}

	_, err = svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: "missing", Quantity: 1, Cost: d("20"),
	})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	_, err = svc.Insert(context.Background(), OrderInput{
		ProductID: "missing", ClientID: c.ID, EmployeeID: e.ID, Quantity: 1, Cost: d("20"),
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestInsert_InsufficientStock_RollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 5)

	_, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 6, Cost: d("120"),
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Nothing committed: no order, no audit, no activity, stock untouched.
	if n := countRows(t, db, &domain.Order{}); n != 0 {
		t.Fatalf("expected 0 orders after rollback, got %d", n)
	}
	if n := countRows(t, db, &domain.AuditRecord{}); n != 0 {
		t.Fatalf("expected 0 audit rows after rollback, got %d", n)
	}
	if n := countRows(t, db, &domain.ActivityEvent{}); n != 0 {
		t.Fatalf("expected 0 activity rows after rollback, got %d", n)
	}
	var got domain.Product
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("readback product: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("stock must be untouched, got %d", got.Stock)
	}
}

func TestInsert_CostWithinTolerance_IsKept(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "50", 100)

	// Expected 100, band 1: 100.50 is inside and must survive reconciliation.
	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 2, Cost: d("100.50"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !o.Cost.Equal(d("100.50")) {
		t.Fatalf("expected submitted cost kept, got %s", o.Cost)
	}
}

func TestInsert_CostOutsideTolerance_IsReplaced(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "50", 100)

	cases := []struct{ submitted string }{
		{"150"},    // too high
		{"50"},     // too low
		{"101.01"}, // just past the band edge
	}
	for _, tc := range cases {
		o, err := svc.Insert(context.Background(), OrderInput{
			ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 2, Cost: d(tc.submitted),
		})
		if err != nil {
			t.Fatalf("Insert(%s): %v", tc.submitted, err)
		}
		if !o.Cost.Equal(d("100")) {
			t.Fatalf("Insert(%s): expected reconciled cost 100, got %s", tc.submitted, o.Cost)
		}
	}
}

func TestInsert_BandEdge_IsKept(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "50", 100)

	// |101 - 100| == band exactly; the submitted value survives.
	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 2, Cost: d("101"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !o.Cost.Equal(d("101")) {
		t.Fatalf("expected edge cost kept, got %s", o.Cost)
	}
}

func TestInsert_DecrementsStock_AndWritesOneAudit(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 8, Cost: d("160"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var got domain.Product
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("readback product: %v", err)
	}
	if got.Stock != 92 {
		t.Fatalf("expected stock 92, got %d", got.Stock)
	}

	var audits []domain.AuditRecord
	if err := db.Where("order_id = ?", o.ID).Find(&audits).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected exactly 1 audit row, got %d", len(audits))
	}
	if audits[0].Action != domain.AuditInsert || audits[0].OldState != nil {
		t.Fatalf("unexpected audit row: %+v", audits[0])
	}
	if audits[0].NewState["cost"] != "160" {
		t.Fatalf("audit must record the final cost, got %v", audits[0].NewState["cost"])
	}

	// Worked scenario: profit 80.00, average order cost 20, stock 92.
	stats := NewStatsService(db)
	profit, err := stats.Profit(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Profit: %v", err)
	}
	if !profit.Equal(d("80")) {
		t.Fatalf("expected profit 80, got %s", profit)
	}
	avg, err := stats.AverageOrderCost(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("AverageOrderCost: %v", err)
	}
	if !avg.Equal(d("20")) {
		t.Fatalf("expected average order cost 20, got %s", avg)
	}
}

func TestInsert_LowStock_NotifiesFirstEligibleRole(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 12)

	mgr := &domain.Employee{ID: uuid.NewString(), Name: "Mia", Email: "mia@example.com",
		Role: "inventory_manager", CreatedAt: time.Now().UTC()}
	if err := db.Create(mgr).Error; err != nil {
		t.Fatalf("seed manager: %v", err)
	}

	// 12 - 3 = 9 <= threshold 10: one system notification for the manager.
	if _, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 3, Cost: d("60"),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var notifs []domain.Notification
	if err := db.Where("recipient_id = ?", mgr.ID).Find(&notifs).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 low-stock notification, got %d", len(notifs))
	}
	if notifs[0].Type != domain.NotificationSystem {
		t.Fatalf("expected system notification, got %q", notifs[0].Type)
	}
}

func TestInsert_LowStock_NoEligibleRecipient_IsSilent(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 12)
	// The seeded employee is a clerk; no manager exists.

	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 3, Cost: d("60"),
	})
	if err != nil {
		t.Fatalf("Insert must not fail without a recipient: %v", err)
	}
	if o == nil {
		t.Fatalf("expected order")
	}
	if n := countRows(t, db, &domain.Notification{}); n != 0 {
		t.Fatalf("expected no notifications, got %d", n)
	}
}

func TestInsert_AboveThreshold_NoNotification(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	mgr := &domain.Employee{ID: uuid.NewString(), Name: "Mia", Email: "mia2@example.com",
		Role: "inventory_manager", CreatedAt: time.Now().UTC()}
	if err := db.Create(mgr).Error; err != nil {
		t.Fatalf("seed manager: %v", err)
	}

	if _, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 5, Cost: d("100"),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n := countRows(t, db, &domain.Notification{}); n != 0 {
		t.Fatalf("expected no notifications above threshold, got %d", n)
	}
}

func TestInsert_MetricsActivity_IsRecorded(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	if _, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 4, Cost: d("80"),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var evs []domain.ActivityEvent
	if err := db.Find(&evs).Error; err != nil {
		t.Fatalf("load activity: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected exactly 1 metrics event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Type != domain.ActivityView {
		t.Fatalf("expected view event, got %q", ev.Type)
	}
	if ev.ClientID != nil {
		t.Fatalf("metrics event must carry no client, got %v", *ev.ClientID)
	}
	if ev.ProductID == nil || *ev.ProductID != p.ID {
		t.Fatalf("metrics event must reference the product, got %v", ev.ProductID)
	}
	if ev.Properties["avg_unit_cost"] != "20" {
		t.Fatalf("expected avg_unit_cost 20, got %v", ev.Properties["avg_unit_cost"])
	}
}

func TestUpdate_AppendsAuditWithSnapshots(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 2, Cost: d("40"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	qty := 5
	cost := d("100")
	upd, err := svc.Update(context.Background(), o.ID, OrderUpdate{Quantity: &qty, Cost: &cost})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Quantity != 5 || !upd.Cost.Equal(d("100")) {
		t.Fatalf("unexpected updated order: %+v", upd)
	}

	// Stock must not be re-adjusted by an administrative update.
	var gotP domain.Product
	if err := db.First(&gotP, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("readback product: %v", err)
	}
	if gotP.Stock != 98 {
		t.Fatalf("stock must stay at 98, got %d", gotP.Stock)
	}

	var audits []domain.AuditRecord
	if err := db.Where("order_id = ?", o.ID).Order("created_at ASC").Find(&audits).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("expected 2 audit rows (insert, update), got %d", len(audits))
	}
	var updAudit *domain.AuditRecord
	for i := range audits {
		if audits[i].Action == domain.AuditUpdate {
			updAudit = &audits[i]
		}
	}
	if updAudit == nil {
		t.Fatalf("missing update audit row: %+v", audits)
	}
	if updAudit.OldState["quantity"] == nil || updAudit.NewState["cost"] != "100" {
		t.Fatalf("update audit must carry old and new snapshots: %+v", updAudit)
	}
}

func TestUpdate_Validation_And_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)

	bad := 0
	if _, err := svc.Update(context.Background(), "x", OrderUpdate{Quantity: &bad}); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	neg := d("-1")
	if _, err := svc.Update(context.Background(), "x", OrderUpdate{Cost: &neg}); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	q := 1
	if _, err := svc.Update(context.Background(), "missing", OrderUpdate{Quantity: &q}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDelete_KeepsAuditTrail_DoesNotRestoreStock(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	o, err := svc.Insert(context.Background(), OrderInput{
		ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 4, Cost: d("80"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := svc.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), o.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected deleted order gone, got %v", err)
	}

	var gotP domain.Product
	if err := db.First(&gotP, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("readback product: %v", err)
	}
	if gotP.Stock != 96 {
		t.Fatalf("deletion must not restore stock, got %d", gotP.Stock)
	}

	var audits []domain.AuditRecord
	if err := db.Where("order_id = ?", o.ID).Find(&audits).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("expected insert+delete audit rows, got %d", len(audits))
	}
	var del *domain.AuditRecord
	for i := range audits {
		if audits[i].Action == domain.AuditDelete {
			del = &audits[i]
		}
	}
	if del == nil || del.NewState != nil || del.OldState["id"] != o.ID {
		t.Fatalf("delete audit must carry the old snapshot only: %+v", del)
	}

	if err := svc.Delete(context.Background(), o.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on re-delete, got %v", err)
	}
}

func TestListPage_And_AuditPage(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderSvc(db)
	p, c, e := seedCatalog(t, db, "10", "20", 100)

	for i := 0; i < 3; i++ {
		if _, err := svc.Insert(context.Background(), OrderInput{
			ProductID: p.ID, ClientID: c.ID, EmployeeID: e.ID, Quantity: 1, Cost: d("20"),
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	items, total, err := svc.ListPage(context.Background(), c.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected total 3 page of 2, got total %d len %d", total, len(items))
	}

	items2, _, err := svc.ListPage(context.Background(), c.ID, 2, 2)
	if err != nil || len(items2) != 1 {
		t.Fatalf("expected 1 item on page 2, got (%d, %v)", len(items2), err)
	}

	none, total, err := svc.ListPage(context.Background(), "nobody", 1, 10)
	if err != nil || total != 0 || len(none) != 0 {
		t.Fatalf("expected empty page, got (%d, %d, %v)", len(none), total, err)
	}

	audit, total, err := svc.AuditPage(context.Background(), items2[0].ID, 1, 10)
	if err != nil {
		t.Fatalf("AuditPage: %v", err)
	}
	if total != 1 || len(audit) != 1 || audit[0].Action != domain.AuditInsert {
		t.Fatalf("unexpected audit page: total=%d rows=%+v", total, audit)
	}
}
