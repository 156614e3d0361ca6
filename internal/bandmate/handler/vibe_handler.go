package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// VibeHandler vibe与cut处理器
type VibeHandler struct {
	svc *service.VibeService
}

// NewVibeHandler 创建vibe处理器
func NewVibeHandler(svc *service.VibeService) *VibeHandler {
	return &VibeHandler{svc: svc}
}

// ============================================================
// Vibe 相关接口
// ============================================================

// ListVibes 项目下vibe列表
// GET /api/projects/:id/vibes
func (h *VibeHandler) ListVibes(c *gin.Context) {
	vibes, err := h.svc.ListVibes(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": vibes})
}

// CreateVibe 创建vibe
// POST /api/projects/:id/vibes
func (h *VibeHandler) CreateVibe(c *gin.Context) {
	var req service.CreateVibeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	vibe, err := h.svc.CreateVibe(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, vibe)
}

// GetVibe vibe详情（含cut列表）
// GET /api/vibes/:id
func (h *VibeHandler) GetVibe(c *gin.Context) {
	vibe, err := h.svc.GetVibe(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, vibe)
}

// UpdateVibe 更新vibe
// PUT /api/vibes/:id
func (h *VibeHandler) UpdateVibe(c *gin.Context) {
	var req service.UpdateVibeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	vibe, err := h.svc.UpdateVibe(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, vibe)
}

// DeleteVibe 删除vibe
// DELETE /api/vibes/:id
func (h *VibeHandler) DeleteVibe(c *gin.Context) {
	if err := h.svc.DeleteVibe(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Cut 相关接口
// ============================================================

// CreateCut 在vibe下创建cut
// POST /api/vibes/:id/cuts
func (h *VibeHandler) CreateCut(c *gin.Context) {
	var req service.CreateCutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cut, err := h.svc.CreateCut(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, cut)
}

// GetCut cut详情（含文件）
// GET /api/cuts/:id
func (h *VibeHandler) GetCut(c *gin.Context) {
	cut, err := h.svc.GetCut(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, cut)
}

// UpdateCut 更新cut
// PUT /api/cuts/:id
func (h *VibeHandler) UpdateCut(c *gin.Context) {
	var req service.UpdateCutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cut, err := h.svc.UpdateCut(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, cut)
}

// DeleteCut 删除cut
// DELETE /api/cuts/:id
func (h *VibeHandler) DeleteCut(c *gin.Context) {
	if err := h.svc.DeleteCut(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// MoveCut 把cut移动到另一个vibe
// POST /api/cuts/:id/move
func (h *VibeHandler) MoveCut(c *gin.Context) {
	var req service.MoveCutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cut, err := h.svc.MoveCut(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, cut)
}

// UpdateLyrics 更新cut歌词
// PUT /api/cuts/:id/lyrics
func (h *VibeHandler) UpdateLyrics(c *gin.Context) {
	var req service.UpdateLyricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cut, err := h.svc.UpdateLyrics(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, cut)
}
