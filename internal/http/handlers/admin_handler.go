// Admin job HTTP handlers.
//
// This file exposes the maintenance job bodies under /admin/jobs/*. The
// service holds no clock and no schedule: an out-of-process scheduler decides
// when to POST each job and may pass the time window explicitly (RFC 3339
// `since` / `cutoff` query parameters). When a window is omitted, the handler
// derives one from the request time using the job's conventional period.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Conventional job windows used when the scheduler does not pass one.
const (
	defaultSummaryWindow      = 7 * 24 * time.Hour
	defaultNoOrdersWindow     = 24 * time.Hour
	defaultReengagementWindow = 30 * 24 * time.Hour
	defaultRetentionAge       = 90 * 24 * time.Hour
)

// timeQuery parses an RFC 3339 query parameter, falling back to now-window.
// The second return value is false when the parameter was present but
// malformed.
func timeQuery(c *gin.Context, name string, window time.Duration) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Now().UTC().Add(-window), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// RunLowStockScan notifies the alert role about every product at or below
// the stock threshold.
func (h *Handlers) RunLowStockScan(c *gin.Context) {
	matched, err := h.maintSvc.LowStockScan(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"low_stock_products": matched})
}

// RunSalesSummary reports order count and revenue since the window start.
func (h *Handlers) RunSalesSummary(c *gin.Context) {
	since, okParse := timeQuery(c, "since", defaultSummaryWindow)
	if !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "since must be RFC 3339")
		return
	}
	sum, err := h.maintSvc.SalesSummarySince(c.Request.Context(), since)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}

// RunRetention purges audit, activity, and read notification rows older than
// the cutoff.
func (h *Handlers) RunRetention(c *gin.Context) {
	cutoff, okParse := timeQuery(c, "cutoff", defaultRetentionAge)
	if !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cutoff must be RFC 3339")
		return
	}
	res, err := h.maintSvc.RetentionCleanup(c.Request.Context(), cutoff)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// RunNoOrdersAlert raises a system notification when no orders arrived in
// the window.
func (h *Handlers) RunNoOrdersAlert(c *gin.Context) {
	since, okParse := timeQuery(c, "since", defaultNoOrdersWindow)
	if !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "since must be RFC 3339")
		return
	}
	alerted, err := h.maintSvc.NoOrdersAlert(c.Request.Context(), since)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"alerted": alerted})
}

// RunReengagement sends marketing notifications to clients with no orders
// since the window start and returns how many were contacted.
func (h *Handlers) RunReengagement(c *gin.Context) {
	since, okParse := timeQuery(c, "since", defaultReengagementWindow)
	if !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "since must be RFC 3339")
		return
	}
	contacted, err := h.maintSvc.Reengagement(c.Request.Context(), since)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"contacted": contacted})
}
