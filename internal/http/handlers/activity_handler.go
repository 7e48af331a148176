// Activity HTTP handlers.
//
// This file exposes REST endpoints for the activity ledger:
//   - POST /activities             (record an event; fan-out rules run inline)
//   - GET  /clients/{id}/activity  (list a client's events, paginated)
//
// Recording an event may produce notifications (promotion on qualifying
// views, marketing reminders on cart adds) in the same transaction. The
// handler only reports the event itself; consumers read notifications
// through their own endpoint.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/services"
)

// RecordActivityRequest is the JSON payload for recording an activity event.
// ClientID and ProductID are optional; anonymous browsing produces events
// with neither.
type RecordActivityRequest struct {
	ClientID  *string        `json:"client_id,omitempty"`
	ProductID *string        `json:"product_id,omitempty"`
	Type      string         `json:"type" binding:"required"`
	Props     map[string]any `json:"properties,omitempty"`
}

// RecordActivityResponse is the JSON envelope for a recorded event.
type RecordActivityResponse struct {
	Event *domain.ActivityEvent `json:"event"`
}

// ListActivityResponse wraps a page of activity events.
type ListActivityResponse struct {
	Events     []domain.ActivityEvent `json:"events"`
	Pagination Pagination             `json:"pagination"`
}

// RecordActivity persists one activity event and runs the fan-out rules.
func (h *Handlers) RecordActivity(c *gin.Context) {
	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type required")
		return
	}

	ev, err := h.actSvc.Record(c.Request.Context(), req.ClientID, req.ProductID, req.Type, req.Props)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidActivityType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown activity type")
		case errors.Is(err, services.ErrClientNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
		case errors.Is(err, services.ErrProductNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, RecordActivityResponse{Event: ev})
}

// ListClientActivity returns a paginated list of a client's activity events.
func (h *Handlers) ListClientActivity(c *gin.Context) {
	cid := c.Param("id")
	if _, err := uuid.Parse(cid); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a UUID")
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.actSvc.ListPage(c.Request.Context(), cid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListActivityResponse{
		Events:     items,
		Pagination: pageMeta(page, pageSize, total),
	})
}
