package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
)

type NotificationsController struct {
	notifications NotificationStore
}

func NewNotificationsController(notifications NotificationStore) *NotificationsController {
	return &NotificationsController{notifications: notifications}
}

// List handles GET /api/notifications. Pass unread=true for unread only.
func (nc *NotificationsController) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	unreadOnly := c.Query("unread") == "true"

	items, total, err := nc.notifications.ListNotifications(auth.GetUserID(c), unreadOnly, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, paginated(items, total, limit, offset))
}

func (nc *NotificationsController) Count(c *gin.Context) {
	n, err := nc.notifications.UnreadCount(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (nc *NotificationsController) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := nc.notifications.MarkRead(auth.GetUserID(c), id); err != nil {
		respondStoreError(c, err, "notification")
		return
	}
	respondSuccess(c, "notification marked as read")
}

func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	n, err := nc.notifications.MarkAllRead(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
