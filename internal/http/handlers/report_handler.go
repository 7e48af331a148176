// Report and aggregation HTTP handlers.
//
// This file exposes the read-only analytical surface:
//   - GET /products/{id}/evaluation   single-product evaluation
//   - GET /products/{id}/profit       per-product profit
//   - GET /products/{id}/average-cost mean cost per unit across orders
//   - GET /reports/profit             global profit
//   - GET /reports/inventory          full-catalog inventory report
//   - GET /clients/{id}/summary       customer summary
//   - GET /employees/{id}/commission  commission at a caller-supplied rate
//
// All figures are computed in exact decimal arithmetic; the global profit is
// the digit-exact sum of the per-product profits.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-retail-backend/internal/services"
)

// AmountResponse is the JSON envelope for a single decimal figure.
type AmountResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

// CommissionResponse carries a commission figure together with the rate it
// was computed at.
type CommissionResponse struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// EvaluateProduct returns the composite evaluation for one product. A missing
// product is reported through the payload's status field, not a 404.
func (h *Handlers) EvaluateProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}
	ev, err := h.reportSvc.EvaluateProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ev)
}

// ProductProfit returns lifetime profit for one product. Unknown products
// yield zero, indistinguishable from a product that has never sold.
func (h *Handlers) ProductProfit(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}
	p, err := h.statsSvc.Profit(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, AmountResponse{Amount: p})
}

// GlobalProfit returns profit across every order.
func (h *Handlers) GlobalProfit(c *gin.Context) {
	p, err := h.statsSvc.Profit(c.Request.Context(), "")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, AmountResponse{Amount: p})
}

// ProductAverageCost returns the mean cost per unit across a product's orders.
func (h *Handlers) ProductAverageCost(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}
	avg, err := h.statsSvc.AverageOrderCost(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, AmountResponse{Amount: avg})
}

// EmployeeCommission returns an employee's commission at the rate given in
// the `rate` query parameter (e.g. ?rate=0.05).
func (h *Handlers) EmployeeCommission(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "employee id must be a UUID")
		return
	}
	rate, err := decimal.NewFromString(c.Query("rate"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rate must be a decimal number")
		return
	}
	amount, err := h.statsSvc.EmployeeCommission(c.Request.Context(), id, rate)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, CommissionResponse{Rate: rate, Amount: amount})
}

// ClientSummary returns the customer summary for one client.
func (h *Handlers) ClientSummary(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a UUID")
		return
	}
	sum, err := h.reportSvc.Summary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}

// InventoryReport returns the full-catalog inventory snapshot.
func (h *Handlers) InventoryReport(c *gin.Context) {
	lines, err := h.reportSvc.Inventory(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, lines)
}
