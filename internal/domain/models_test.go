package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderSnapshot(t *testing.T) {
	var nilOrder *Order
	if nilOrder.Snapshot() != nil {
		t.Fatalf("nil order must snapshot to nil")
	}

	date := time.Date(2026, 3, 15, 10, 30, 0, 0, time.FixedZone("EET", 2*3600))
	o := &Order{
		ID:         "o1",
		ProductID:  "p1",
		ClientID:   "c1",
		EmployeeID: "e1",
		Quantity:   3,
		Cost:       decimal.RequireFromString("60.50"),
		Date:       date,
	}
	snap := o.Snapshot()
	if snap["id"] != "o1" || snap["product_id"] != "p1" || snap["client_id"] != "c1" || snap["employee_id"] != "e1" {
		t.Fatalf("identity fields wrong: %v", snap)
	}
	if snap["quantity"] != 3 {
		t.Fatalf("quantity = %v", snap["quantity"])
	}
	// Cost is stored as its canonical decimal string, never a float.
	if snap["cost"] != "60.5" {
		t.Fatalf("cost = %v", snap["cost"])
	}
	// Dates are normalized to UTC RFC 3339.
	if snap["date"] != "2026-03-15T08:30:00Z" {
		t.Fatalf("date = %v", snap["date"])
	}
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{Product{}.TableName(), "products"},
		{Client{}.TableName(), "clients"},
		{Employee{}.TableName(), "employees"},
		{Address{}.TableName(), "addresses"},
		{Order{}.TableName(), "orders"},
		{AuditRecord{}.TableName(), "audit_records"},
		{Notification{}.TableName(), "notifications"},
		{ActivityEvent{}.TableName(), "activity_events"},
		{Idempotency{}.TableName(), "idempotency"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("table name %q, want %q", tc.got, tc.want)
		}
	}
}
