package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

func TestAppendAudit_And_List(t *testing.T) {
	db := newTestDB(t, &domain.AuditRecord{})
	ctx := context.Background()

	newState := datatypes.JSONMap{"quantity": 2, "cost": "40"}
	rec, err := AppendAudit(ctx, db, "o1", domain.AuditInsert, nil, newState)
	if err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if rec.ID == "" || rec.Action != "insert" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	total, err := CountAudit(ctx, db, "o1")
	if err != nil || total != 1 {
		t.Fatalf("CountAudit = (%d, %v), want 1", total, err)
	}

	rows, err := ListAuditPage(ctx, db, "o1", 0, 10)
	if err != nil {
		t.Fatalf("ListAuditPage: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].OldState != nil {
		t.Fatalf("insert audit should carry no old state: %+v", rows[0].OldState)
	}
	if rows[0].NewState["cost"] != "40" {
		t.Fatalf("expected new state cost 40, got %v", rows[0].NewState["cost"])
	}
}

func TestListAuditPage_ChronologicalOrder(t *testing.T) {
	db := newTestDB(t, &domain.AuditRecord{})
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	// Seed out of order with explicit timestamps.
	later := &domain.AuditRecord{ID: "a2", OrderID: "o1", Action: "update", CreatedAt: t2}
	if err := db.Create(later).Error; err != nil {
		t.Fatalf("seed a2: %v", err)
	}
	earlier := &domain.AuditRecord{ID: "a1", OrderID: "o1", Action: "insert", CreatedAt: t1}
	if err := db.Create(earlier).Error; err != nil {
		t.Fatalf("seed a1: %v", err)
	}

	rows, err := ListAuditPage(ctx, db, "o1", 0, 10)
	if err != nil {
		t.Fatalf("ListAuditPage: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "a1" || rows[1].ID != "a2" {
		t.Fatalf("expected chronological order [a1, a2], got %+v", rows)
	}
}

func TestPurgeAuditBefore(t *testing.T) {
	db := newTestDB(t, &domain.AuditRecord{})
	ctx := context.Background()

	old := &domain.AuditRecord{ID: "old", OrderID: "o1", Action: "insert",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("seed old: %v", err)
	}
	fresh := &domain.AuditRecord{ID: "fresh", OrderID: "o1", Action: "update",
		CreatedAt: time.Now().UTC()}
	if err := db.Create(fresh).Error; err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	n, err := PurgeAuditBefore(ctx, db, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeAuditBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	total, err := CountAudit(ctx, db, "o1")
	if err != nil || total != 1 {
		t.Fatalf("expected 1 surviving row, got (%d, %v)", total, err)
	}
}
