// Notification HTTP handlers.
//
// This file exposes the notification consumer surface:
//   - GET  /recipients/{id}/notifications (list, paginated, ?unread=true filter)
//   - POST /notifications/{id}/read       (mark read)
//
// Recipients are clients or employees; notifications carry no foreign key so
// the same endpoint serves both. Marking read is the only external mutation
// the model allows; everything else is written by the pipeline and fan-out.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/services"
)

// ListNotificationsResponse wraps a page of notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// ListNotifications returns a paginated list of a recipient's notifications,
// newest first. Pass ?unread=true to filter to unread rows.
func (h *Handlers) ListNotifications(c *gin.Context) {
	rid := c.Param("id")
	if _, err := uuid.Parse(rid); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient id must be a UUID")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	page, pageSize := clampPagination(c)
	items, total, err := h.notifSvc.ListPage(c.Request.Context(), rid, page, pageSize, unreadOnly)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination:    pageMeta(page, pageSize, total),
	})
}

// MarkNotificationRead marks one notification as read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
