// Order HTTP handlers.
//
// This file exposes REST endpoints for order resources:
//   - POST   /orders              (insert, runs the full mutation pipeline)
//   - GET    /orders/{id}         (fetch one order)
//   - PUT    /orders/{id}         (administrative update, audit only)
//   - DELETE /orders/{id}         (delete, audit only)
//   - GET    /clients/{id}/orders (list, paginated)
//   - GET    /orders/{id}/audit   (audit trail, paginated)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The pipeline semantics (stock
// validation, cost reconciliation, audit, inventory decrement, notifications)
// live entirely in the service layer.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (client, scope, key), POST /orders returns the recorded
// order and sets `Idempotency-Replayed: true` instead of re-running the
// pipeline. Replays never decrement stock twice.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/http/middleware"
	"github.com/tbourn/go-retail-backend/internal/repo"
	"github.com/tbourn/go-retail-backend/internal/services"
	"github.com/tbourn/go-retail-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// OrderService defines the order mutation pipeline operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OrderService interface {
	// Insert runs the full mutation pipeline for a new order.
	Insert(ctx context.Context, in services.OrderInput) (*domain.Order, error)
	// Update applies administrative field changes, appending one audit record.
	Update(ctx context.Context, id string, upd services.OrderUpdate) (*domain.Order, error)
	// Delete removes an order, appending one audit record.
	Delete(ctx context.Context, id string) error
	// Get fetches one order by ID.
	Get(ctx context.Context, id string) (*domain.Order, error)
	// ListPage returns a page of a client's orders and the total count.
	ListPage(ctx context.Context, clientID string, page, pageSize int) ([]domain.Order, int64, error)
	// AuditPage returns a page of an order's audit trail and the total count.
	AuditPage(ctx context.Context, orderID string, page, pageSize int) ([]domain.AuditRecord, int64, error)
}

// ActivityService defines activity recording and retrieval operations.
type ActivityService interface {
	// Record persists one activity event and runs the fan-out rules.
	Record(ctx context.Context, clientID, productID *string, typ string, props map[string]any) (*domain.ActivityEvent, error)
	// ListPage returns a page of a client's activity and the total count.
	ListPage(ctx context.Context, clientID string, page, pageSize int) ([]domain.ActivityEvent, int64, error)
}

// StatsService defines the read-only aggregation functions.
type StatsService interface {
	AverageOrderCost(ctx context.Context, productID string) (decimal.Decimal, error)
	Profit(ctx context.Context, productID string) (decimal.Decimal, error)
	EmployeeCommission(ctx context.Context, employeeID string, rate decimal.Decimal) (decimal.Decimal, error)
}

// ReportService defines the composite read routines.
type ReportService interface {
	EvaluateProduct(ctx context.Context, productID string) (*services.ProductEvaluation, error)
	Summary(ctx context.Context, clientID string) (*services.CustomerSummary, error)
	Inventory(ctx context.Context) ([]services.InventoryLine, error)
}

// NotificationService defines the notification consumer surface.
type NotificationService interface {
	ListPage(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) ([]domain.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for orders, activity, catalog, reports,
// notifications, and admin jobs. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	orderSvc  OrderService
	actSvc    ActivityService
	catSvc    *services.CatalogService
	statsSvc  StatsService
	reportSvc ReportService
	notifSvc  NotificationService
	maintSvc  *services.MaintenanceService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(
	orderSvc OrderService,
	actSvc ActivityService,
	catSvc *services.CatalogService,
	statsSvc StatsService,
	reportSvc ReportService,
	notifSvc NotificationService,
	maintSvc *services.MaintenanceService,
) *Handlers {
	return &Handlers{
		orderSvc:  orderSvc,
		actSvc:    actSvc,
		catSvc:    catSvc,
		statsSvc:  statsSvc,
		reportSvc: reportSvc,
		notifSvc:  notifSvc,
		maintSvc:  maintSvc,
	}
}

// clientID extracts the calling client's identity from Gin context (set by
// upstream middleware). If absent, it falls back to the "X-Client-ID" header
// (tests use it), and finally to "anonymous". It never touches c.Request if
// it's nil.
func clientID(c *gin.Context) string {
	if v, ok := c.Get("clientID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Client-ID")); h != "" {
			return h
		}
	}
	return "anonymous"
}

//
// DTOs
//

// CreateOrderRequest is the JSON payload for inserting an order.
type CreateOrderRequest struct {
	ProductID  string          `json:"product_id" binding:"required"`
	ClientID   string          `json:"client_id" binding:"required"`
	EmployeeID string          `json:"employee_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required"`
	// Cost is the caller-proposed total; it may be silently replaced when it
	// falls outside the reconciliation tolerance.
	Cost decimal.Decimal `json:"cost"`
	Date *time.Time      `json:"date,omitempty"`
}

// UpdateOrderRequest is the JSON payload for an administrative order update.
// Absent fields leave the current value untouched.
type UpdateOrderRequest struct {
	Quantity *int             `json:"quantity,omitempty"`
	Cost     *decimal.Decimal `json:"cost,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
}

// OrderResponse is the JSON envelope for a single order.
type OrderResponse struct {
	Order *domain.Order `json:"order"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListOrdersResponse wraps a page of orders and pagination information.
type ListOrdersResponse struct {
	Orders     []domain.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// ListAuditResponse wraps a page of audit records and pagination information.
type ListAuditResponse struct {
	Audit      []domain.AuditRecord `json:"audit"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// pageMeta computes pagination metadata from a total row count.
func pageMeta(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// failOrderErr maps service-layer order errors onto the HTTP error taxonomy.
func failOrderErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		fail(c, http.StatusConflict, ErrCodeInsufficientStock, "stock cannot cover the requested quantity")
	case errors.Is(err, services.ErrConstraintViolation):
		fail(c, http.StatusUnprocessableEntity, ErrCodeConstraintViolation, "quantity must be positive and cost non-negative")
	case errors.Is(err, services.ErrProductNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
	case errors.Is(err, services.ErrEmployeeNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "employee not found")
	case errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateOrder inserts a new order through the full mutation pipeline.
//
// On success it returns 201 with the persisted order, whose cost may differ
// from the submitted one when reconciliation replaced it. Insufficient stock
// maps to 409, a constraint violation to 422. Supports idempotent retries via
// the Idempotency-Key header.
func (h *Handlers) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product_id, client_id, employee_id and quantity required")
		return
	}

	caller := clientID(c)
	scope := c.FullPath()

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.orderSvc.(*services.OrderService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, caller, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetOrder(ctx, svc.DB, rec.ResultID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, OrderResponse{Order: prev})
					return
				}
			}
		}
	}

	in := services.OrderInput{
		ProductID:  req.ProductID,
		ClientID:   req.ClientID,
		EmployeeID: req.EmployeeID,
		Quantity:   req.Quantity,
		Cost:       req.Cost,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	o, err := h.orderSvc.Insert(ctx, in)
	if err != nil {
		failOrderErr(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.orderSvc.(*services.OrderService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, caller, scope, idemKey, o.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, OrderResponse{Order: o})
}

// GetOrder fetches one order by ID.
func (h *Handlers) GetOrder(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return
	}

	o, err := h.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		failOrderErr(c, err)
		return
	}
	ok(c, http.StatusOK, OrderResponse{Order: o})
}

// UpdateOrder applies administrative field changes to an order. The change is
// recorded in the audit trail; inventory and cost validation do not re-run.
func (h *Handlers) UpdateOrder(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == nil && req.Cost == nil && req.Date == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one of quantity, cost, date required")
		return
	}

	o, err := h.orderSvc.Update(c.Request.Context(), id, services.OrderUpdate{
		Quantity: req.Quantity,
		Cost:     req.Cost,
		Date:     req.Date,
	})
	if err != nil {
		failOrderErr(c, err)
		return
	}
	ok(c, http.StatusOK, OrderResponse{Order: o})
}

// DeleteOrder removes an order, leaving its audit trail in place.
func (h *Handlers) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return
	}

	if err := h.orderSvc.Delete(c.Request.Context(), id); err != nil {
		failOrderErr(c, err)
		return
	}
	noContent(c)
}

// ListClientOrders returns a paginated list of a client's orders.
func (h *Handlers) ListClientOrders(c *gin.Context) {
	cid := c.Param("id")
	if _, err := uuid.Parse(cid); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a UUID")
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.orderSvc.ListPage(c.Request.Context(), cid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListOrdersResponse{
		Orders:     items,
		Pagination: pageMeta(page, pageSize, total),
	})
}

// ListOrderAudit returns a paginated view of an order's audit trail. The
// trail survives deletion of the order itself.
func (h *Handlers) ListOrderAudit(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.orderSvc.AuditPage(c.Request.Context(), id, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAuditResponse{
		Audit:      items,
		Pagination: pageMeta(page, pageSize, total),
	})
}
