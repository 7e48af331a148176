// Package services – OrderService
//
// This file implements the order mutation pipeline: the ordered sequence of
// validation and side-effect stages that fires on every order insert, update,
// and delete. The stages run inside one database transaction per mutation, in
// a fixed order that is spelled out in code as a named stage list rather than
// left to database trigger semantics:
//
//	insert: stock_validation → cost_reconciliation → audit_append →
//	        inventory_decrement → low_stock_notification → metrics_activity
//	update: audit_append (old+new snapshots) only
//	delete: audit_append (old snapshot) only
//
// Stock validation is the single hard abort (the transaction rolls back and
// nothing is committed). Every later stage is best-effort in the sense that a
// rule not applying (no eligible alert recipient, no fan-out match) is a
// silent no-op, never an error; but a stage whose own write fails aborts the
// transaction, keeping the audit trail consistent with the order table. No
// stage is ever retried.
//
// The metrics_activity stage writes an activity event through the activity
// service, which invokes the fan-out stage as an ordinary function call. That
// makes the recursion depth (exactly one hop) visible here in code instead
// of emergent from trigger chains.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLowStockThreshold is the post-decrement stock level at or below
// which a low-stock notification is emitted.
const DefaultLowStockThreshold = 10

// DefaultAlertRoles are the employee roles eligible to receive low-stock
// notifications, probed in order of employee seniority (oldest row first).
var DefaultAlertRoles = []string{"inventory_manager", "sales_manager"}

// OrderInput carries the caller-supplied fields of an order mutation.
type OrderInput struct {
	ProductID  string
	ClientID   string
	EmployeeID string
	Quantity   int
	Cost       decimal.Decimal
	Date       time.Time
}

// OrderUpdate carries the administrative fields an order update may change.
// Nil pointers leave the current value untouched.
type OrderUpdate struct {
	Quantity *int
	Cost     *decimal.Decimal
	Date     *time.Time
}

// OrderService owns the order mutation pipeline.
type OrderService struct {
	DB *gorm.DB

	// Activity is the fan-out stage; the pipeline's metrics event enters it
	// through the same path as any externally recorded event.
	Activity *ActivityService

	// LowStockThreshold is the post-decrement stock level that triggers an
	// alert; zero falls back to DefaultLowStockThreshold.
	LowStockThreshold int

	// CostTolerance is the relative band (e.g. 0.01) within which a
	// caller-supplied cost is kept; outside it, the cost is silently
	// replaced with sell_price*quantity.
	CostTolerance decimal.Decimal

	// AlertRoles overrides DefaultAlertRoles when non-empty.
	AlertRoles []string
}

// NewOrderService constructs an OrderService with the standard defaults:
// threshold 10, tolerance 1%.
func NewOrderService(db *gorm.DB, activity *ActivityService) *OrderService {
	return &OrderService{
		DB:                db,
		Activity:          activity,
		LowStockThreshold: DefaultLowStockThreshold,
		CostTolerance:     decimal.NewFromFloat(0.01),
	}
}

// pipelineState is threaded through the insert stages in order.
type pipelineState struct {
	in      OrderInput
	product *domain.Product
	cost    decimal.Decimal
	order   *domain.Order
}

// insertStage is one named step of the insert pipeline.
type insertStage struct {
	name string
	run  func(ctx context.Context, tx *gorm.DB, st *pipelineState) error
}

// insertStages returns the fixed, ordered stage list for order insertion.
// The order is a contract: reordering these changes observable behavior.
func (s *OrderService) insertStages() []insertStage {
	return []insertStage{
		{"stock_validation", s.stageStockValidation},
		{"cost_reconciliation", s.stageCostReconciliation},
		{"audit_append", s.stageAuditAppend},
		{"inventory_decrement", s.stageInventoryDecrement},
		{"low_stock_notification", s.stageLowStockNotification},
		{"metrics_activity", s.stageMetricsActivity},
	}
}

// Insert runs the full pipeline for a new order. On success it returns the
// persisted order with its final (possibly reconciled) cost. A failed stock
// check returns ErrInsufficientStock and leaves no side effects.
func (s *OrderService) Insert(ctx context.Context, in OrderInput) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Insert",
		trace.WithAttributes(
			attribute.String("product.id", in.ProductID),
			attribute.String("client.id", in.ClientID),
			attribute.Int("order.quantity", in.Quantity),
		),
	)
	defer span.End()

	// Constraint gate: rejected before the pipeline runs.
	if in.Quantity <= 0 || in.Cost.IsNegative() {
		return nil, ErrConstraintViolation
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	// Referential checks outside the transaction so missing parties surface
	// as status errors rather than raw FK failures.
	if _, err := repo.GetClient(ctx, s.DB, in.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if _, err := repo.GetEmployee(ctx, s.DB, in.EmployeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	st := &pipelineState{in: in, cost: in.Cost}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stage := range s.insertStages() {
			if err := stage.run(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st.order, nil
}

// stageStockValidation locks the product row and aborts the mutation when
// stock cannot cover the requested quantity.
func (s *OrderService) stageStockValidation(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	p, err := repo.GetProductForUpdate(ctx, tx, st.in.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if p.Stock < st.in.Quantity {
		return ErrInsufficientStock
	}
	st.product = p
	return nil
}

// stageCostReconciliation replaces the submitted cost with
// sell_price*quantity when it falls outside the tolerance band. Within the
// band the caller's value is kept unchanged.
func (s *OrderService) stageCostReconciliation(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	expected := st.product.SellPrice.Mul(decimal.NewFromInt(int64(st.in.Quantity)))
	band := expected.Mul(s.tolerance())
	if st.cost.Sub(expected).Abs().GreaterThan(band) {
		st.cost = expected
	}

	o, err := repo.CreateOrder(ctx, tx, st.in.ProductID, st.in.ClientID, st.in.EmployeeID, st.in.Quantity, st.cost, st.in.Date)
	if err != nil {
		return err
	}
	st.order = o
	return nil
}

// stageAuditAppend writes the single insert audit record with the order's
// final field values (post cost-reconciliation).
func (s *OrderService) stageAuditAppend(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	_, err := repo.AppendAudit(ctx, tx, st.order.ID, domain.AuditInsert, nil, st.order.Snapshot())
	return err
}

// stageInventoryDecrement subtracts the order quantity from product stock.
// Availability was proven by stage one under the same row lock.
func (s *OrderService) stageInventoryDecrement(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	return repo.DecrementStock(ctx, tx, st.product.ID, st.in.Quantity)
}

// stageLowStockNotification emits one system notification to the designated
// recipient role when post-decrement stock reaches the threshold. With no
// eligible employee the stage is a silent no-op.
func (s *OrderService) stageLowStockNotification(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	remaining := st.product.Stock - st.in.Quantity
	if remaining > s.threshold() {
		return nil
	}
	roles := s.AlertRoles
	if len(roles) == 0 {
		roles = DefaultAlertRoles
	}
	emp, err := repo.FirstEmployeeByRole(ctx, tx, roles...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // no recipient, no notification
		}
		return err
	}
	msg := "Low stock: " + st.product.Name + " is down to " +
		decimal.NewFromInt(int64(remaining)).String() + " units"
	_, err = repo.CreateNotification(ctx, tx, emp.ID, msg, domain.NotificationSystem)
	return err
}

// stageMetricsActivity appends one view-typed activity event carrying the
// product's updated order count and mean cost per unit. The event goes
// through the activity service, so it re-enters the fan-out stage exactly
// like an externally recorded event would (and terminates after that one
// hop: notifications never write activity).
func (s *OrderService) stageMetricsActivity(ctx context.Context, tx *gorm.DB, st *pipelineState) error {
	count, err := repo.CountOrdersByProduct(ctx, tx, st.product.ID)
	if err != nil {
		return err
	}
	rows, err := repo.OrderCostRows(ctx, tx, st.product.ID)
	if err != nil {
		return err
	}
	productID := st.product.ID
	_, err = s.Activity.recordIn(ctx, tx, nil, &productID, domain.ActivityView, map[string]any{
		"order_count":   count,
		"avg_unit_cost": meanUnitCost(rows).String(),
	})
	return err
}

// Update applies administrative field changes and appends one audit record
// with old and new snapshots. Inventory is not re-adjusted and cost is not
// re-validated on update; the update contract is deliberately narrow.
func (s *OrderService) Update(ctx context.Context, id string, upd OrderUpdate) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	if upd.Quantity != nil && *upd.Quantity <= 0 {
		return nil, ErrConstraintViolation
	}
	if upd.Cost != nil && upd.Cost.IsNegative() {
		return nil, ErrConstraintViolation
	}

	var out *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := repo.GetOrder(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		oldSnap := o.Snapshot()

		if upd.Quantity != nil {
			o.Quantity = *upd.Quantity
		}
		if upd.Cost != nil {
			o.Cost = *upd.Cost
		}
		if upd.Date != nil {
			o.Date = *upd.Date
		}
		if err := repo.SaveOrder(ctx, tx, o); err != nil {
			return err
		}
		if _, err := repo.AppendAudit(ctx, tx, o.ID, domain.AuditUpdate, oldSnap, o.Snapshot()); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an order and appends one audit record carrying the old
// snapshot only. Stock is not restored: deletion is an administrative
// correction, not a return flow.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := repo.GetOrder(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if err := repo.DeleteOrder(ctx, tx, id); err != nil {
			return err
		}
		_, err = repo.AppendAudit(ctx, tx, o.ID, domain.AuditDelete, o.Snapshot(), nil)
		return err
	})
}

// Get fetches one order by ID.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := repo.GetOrder(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListPage returns a page of a client's orders and the total count.
func (s *OrderService) ListPage(ctx context.Context, clientID string, page, pageSize int) ([]domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountOrders(ctx, s.DB, clientID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Order{}, 0, nil
	}
	items, err := repo.ListOrdersPage(ctx, s.DB, clientID, offset, pageSize)
	return items, total, err
}

// AuditPage returns a page of an order's audit trail and the total count.
func (s *OrderService) AuditPage(ctx context.Context, orderID string, page, pageSize int) ([]domain.AuditRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountAudit(ctx, s.DB, orderID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AuditRecord{}, 0, nil
	}
	items, err := repo.ListAuditPage(ctx, s.DB, orderID, offset, pageSize)
	return items, total, err
}

func (s *OrderService) threshold() int {
	if s.LowStockThreshold > 0 {
		return s.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

func (s *OrderService) tolerance() decimal.Decimal {
	if s.CostTolerance.IsPositive() {
		return s.CostTolerance
	}
	return decimal.NewFromFloat(0.01)
}

// meanUnitCost averages cost/quantity across order rows; zero with no rows.
func meanUnitCost(rows []repo.OrderCostRow) decimal.Decimal {
	if len(rows) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Cost.Div(decimal.NewFromInt(int64(r.Quantity))))
	}
	return sum.Div(decimal.NewFromInt(int64(len(rows))))
}
