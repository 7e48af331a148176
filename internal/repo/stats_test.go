package repo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOrderCostRows_Empty_And_Rows(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()

	rows, err := OrderCostRows(ctx, db, "unknown")
	if err != nil {
		t.Fatalf("OrderCostRows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for unknown product, got %d", len(rows))
	}

	now := time.Now().UTC()
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 2, dec("40"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c2", "e1", 5, dec("125.50"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p2", "c1", "e1", 1, dec("9"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err = OrderCostRows(ctx, db, "p1")
	if err != nil {
		t.Fatalf("OrderCostRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	sum := decimal.Zero
	qty := 0
	for _, r := range rows {
		sum = sum.Add(r.Cost)
		qty += r.Quantity
	}
	if !sum.Equal(dec("165.50")) || qty != 7 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestProfitRows_PerProduct_And_Global(t *testing.T) {
	db := newTestDB(t, &domain.Order{}, &domain.Product{})
	ctx := context.Background()
	now := time.Now().UTC()

	pa, err := CreateProduct(ctx, db, "A", "X", dec("10"), dec("20"), 100)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	pb, err := CreateProduct(ctx, db, "B", "X", dec("5"), dec("7.50"), 100)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := CreateOrder(ctx, db, pa.ID, "c1", "e1", 3, dec("60"), now); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := CreateOrder(ctx, db, pb.ID, "c1", "e1", 2, dec("15"), now); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	rows, err := ProfitRows(ctx, db, pa.ID)
	if err != nil {
		t.Fatalf("ProfitRows(pa): %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for pa, got %d", len(rows))
	}
	if !rows[0].BuyPrice.Equal(dec("10")) || !rows[0].SellPrice.Equal(dec("20")) || rows[0].Quantity != 3 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}

	all, err := ProfitRows(ctx, db, "")
	if err != nil {
		t.Fatalf("ProfitRows(all): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows globally, got %d", len(all))
	}
}

func TestEmployeeOrderCosts(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("10"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c2", "e1", 1, dec("30.25"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e2", 1, dec("99"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	costs, err := EmployeeOrderCosts(ctx, db, "e1")
	if err != nil {
		t.Fatalf("EmployeeOrderCosts: %v", err)
	}
	if len(costs) != 2 {
		t.Fatalf("expected 2 costs, got %d", len(costs))
	}
	sum := decimal.Zero
	for _, c := range costs {
		sum = sum.Add(c)
	}
	if !sum.Equal(dec("40.25")) {
		t.Fatalf("expected total 40.25, got %s", sum)
	}

	none, err := EmployeeOrderCosts(ctx, db, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no costs for unknown employee, got (%v, %v)", none, err)
	}
}

func TestSoldQuantity(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := SoldQuantity(ctx, db, "p1")
	if err != nil || n != 0 {
		t.Fatalf("SoldQuantity empty = (%d, %v), want 0", n, err)
	}

	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 3, dec("30"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c2", "e1", 4, dec("40"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err = SoldQuantity(ctx, db, "p1")
	if err != nil || n != 7 {
		t.Fatalf("SoldQuantity = (%d, %v), want 7", n, err)
	}
}

func TestClientOrderStats_Zero_And_Success(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()

	count, last, err := ClientOrderStats(ctx, db, "c1")
	if err != nil {
		t.Fatalf("ClientOrderStats: %v", err)
	}
	if count != 0 || last != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, last)
	}

	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("10"), d1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("10"), d2); err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, last, err = ClientOrderStats(ctx, db, "c1")
	if err != nil {
		t.Fatalf("ClientOrderStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if last == nil || !last.Equal(d2) {
		t.Fatalf("expected last order at %v, got %v", d2, last)
	}
}

func TestClientOrderCosts(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("12.50"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("7.50"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c2", "e1", 1, dec("99"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	costs, err := ClientOrderCosts(ctx, db, "c1")
	if err != nil {
		t.Fatalf("ClientOrderCosts: %v", err)
	}
	sum := decimal.Zero
	for _, c := range costs {
		sum = sum.Add(c)
	}
	if len(costs) != 2 || !sum.Equal(dec("20")) {
		t.Fatalf("expected 2 costs summing to 20, got %d summing to %s", len(costs), sum)
	}
}

func TestTopProductsByClient(t *testing.T) {
	db := newTestDB(t, &domain.Order{}, &domain.Product{})
	ctx := context.Background()
	now := time.Now().UTC()

	pa, err := CreateProduct(ctx, db, "Lamp", "X", dec("1"), dec("2"), 100)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	pb, err := CreateProduct(ctx, db, "Mug", "X", dec("1"), dec("2"), 100)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	// pa: 5 total, pb: 2 total for c1.
	if _, err := CreateOrder(ctx, db, pa.ID, "c1", "e1", 3, dec("6"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, pa.ID, "c1", "e1", 2, dec("4"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, pb.ID, "c1", "e1", 2, dec("4"), now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	top, err := TopProductsByClient(ctx, db, "c1", 1)
	if err != nil {
		t.Fatalf("TopProductsByClient: %v", err)
	}
	if len(top) != 1 || top[0].ProductID != pa.ID || top[0].Quantity != 5 || top[0].Name != "Lamp" {
		t.Fatalf("unexpected top products: %+v", top)
	}
}

func TestCountOrdersSince_And_Costs(t *testing.T) {
	db := newTestDB(t, &domain.Order{})
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("10"), old); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c1", "e1", 1, dec("20"), recent); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", "c2", "e1", 1, dec("30"), recent); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := CountOrdersSince(ctx, db, since)
	if err != nil || n != 2 {
		t.Fatalf("CountOrdersSince = (%d, %v), want 2", n, err)
	}

	costs, err := OrderCostsSince(ctx, db, since)
	if err != nil {
		t.Fatalf("OrderCostsSince: %v", err)
	}
	sum := decimal.Zero
	for _, c := range costs {
		sum = sum.Add(c)
	}
	if len(costs) != 2 || !sum.Equal(dec("50")) {
		t.Fatalf("expected 2 costs summing to 50, got %d summing to %s", len(costs), sum)
	}
}

func TestListInactiveClients(t *testing.T) {
	db := newTestDB(t, &domain.Order{}, &domain.Client{})
	ctx := context.Background()

	active, err := CreateClient(ctx, db, "Active", "active@example.com")
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	lapsed, err := CreateClient(ctx, db, "Lapsed", "lapsed@example.com")
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	never, err := CreateClient(ctx, db, "Never", "never@example.com")
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}

	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := CreateOrder(ctx, db, "p1", active.ID, "e1", 1, dec("10"),
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := CreateOrder(ctx, db, "p1", lapsed.ID, "e1", 1, dec("10"),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	out, err := ListInactiveClients(ctx, db, since)
	if err != nil {
		t.Fatalf("ListInactiveClients: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 inactive clients, got %d", len(out))
	}
	ids := map[string]bool{out[0].ID: true, out[1].ID: true}
	if !ids[lapsed.ID] || !ids[never.ID] || ids[active.ID] {
		t.Fatalf("unexpected inactive set: %+v", out)
	}
}
