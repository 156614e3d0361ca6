package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// ActivityHandler 动态流处理器
type ActivityHandler struct {
	svc *service.ActivityService
}

// NewActivityHandler 创建动态处理器
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List 当前用户可见的动态流
// GET /api/activities?type=&projectId=&unreadOnly=&limit=&offset=
func (h *ActivityHandler) List(c *gin.Context) {
	limit, offset := GetLimitOffset(c)
	filter := repository.ActivityFilter{
		Type:      entity.ActivityType(c.Query("type")),
		ProjectID: c.Query("projectId"),
		Unread:    c.Query("unreadOnly") == "true",
		Limit:     limit,
		Offset:    offset,
	}

	userID, role := GetUserID(c), GetUserRole(c)
	items, total, err := h.svc.List(c.Request.Context(), userID, role, filter)
	if err != nil {
		ServiceError(c, err)
		return
	}
	unread, err := h.svc.UnreadCount(c.Request.Context(), userID, role)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"activities":  items,
		"total":       total,
		"unreadCount": unread,
	})
}

// UnreadCount 未读动态数
// GET /api/activities/unread-count
func (h *ActivityHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"count": count})
}

// MarkRead 标记单条动态已读
// PATCH /api/activities/:id/read
func (h *ActivityHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// MarkAllRead 标记全部可见动态已读
// PATCH /api/activities/read-all
func (h *ActivityHandler) MarkAllRead(c *gin.Context) {
	marked, err := h.svc.MarkAllRead(c.Request.Context(), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"marked": marked})
}

// Dismiss 从自己的动态流中移除一条动态
// DELETE /api/activities/:id
func (h *ActivityHandler) Dismiss(c *gin.Context) {
	if err := h.svc.Dismiss(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// Undismiss 恢复已移除的动态
// PATCH /api/activities/:id/undismiss
func (h *ActivityHandler) Undismiss(c *gin.Context) {
	if err := h.svc.Undismiss(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// DismissAll 移除全部可见动态
// DELETE /api/activities
func (h *ActivityHandler) DismissAll(c *gin.Context) {
	dismissed, err := h.svc.DismissAll(c.Request.Context(), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"dismissed": dismissed})
}
