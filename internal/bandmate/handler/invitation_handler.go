package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// InvitationHandler 项目邀请处理器
type InvitationHandler struct {
	svc *service.InvitationService
}

// NewInvitationHandler 创建邀请处理器
func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{svc: svc}
}

// Invite 向邮箱发送项目邀请
// POST /api/projects/:id/invitations
func (h *InvitationHandler) Invite(c *gin.Context) {
	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	inv, err := h.svc.Invite(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, inv)
}

// ListByProject 项目的待处理邀请列表
// GET /api/projects/:id/invitations
func (h *InvitationHandler) ListByProject(c *gin.Context) {
	items, err := h.svc.ListByProject(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Accept 接受邀请（token在路径中）
// POST /api/invitations/:token/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	inv, err := h.svc.Accept(c.Request.Context(), c.Param("token"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Decline 拒绝邀请
// POST /api/invitations/:token/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	if err := h.svc.Decline(c.Request.Context(), c.Param("token")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
