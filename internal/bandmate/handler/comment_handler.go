package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// CommentHandler 评论处理器
type CommentHandler struct {
	svc *service.CommentService
}

// NewCommentHandler 创建评论处理器
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// Create 在cut下发表评论
// POST /api/cuts/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	comment, err := h.svc.Create(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, comment)
}

// List cut下评论列表（顶层评论带回复）
// GET /api/cuts/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.svc.List(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": comments})
}

// Update 修改评论内容
// PUT /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var req service.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	comment, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, comment)
}

// Delete 删除评论（作者、管理员或项目所有者）
// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
