package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	svc *service.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 当前用户的通知列表
// GET /api/notifications?unreadOnly=&limit=&offset=
func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := GetLimitOffset(c)
	unreadOnly := c.Query("unreadOnly") == "true"

	items, total, err := h.svc.List(c.Request.Context(), GetUserID(c), unreadOnly, limit, offset)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// UnreadCount 未读通知数
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"count": count})
}

// MarkRead 标记单条通知已读
// PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// MarkAllRead 标记全部通知已读
// PATCH /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	marked, err := h.svc.MarkAllRead(c.Request.Context(), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"marked": marked})
}

// Delete 删除一条通知
// DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
