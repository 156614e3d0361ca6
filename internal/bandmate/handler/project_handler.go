package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List 获取可见项目列表
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	limit, offset := GetLimitOffset(c)
	result, err := h.svc.List(c.Request.Context(), GetUserID(c), GetUserRole(c), limit, offset)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// Create 创建项目
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	project, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, project)
}

// Get 获取项目详情
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, project)
}

// Update 更新项目
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	project, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, project)
}

// Delete 删除项目
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// ListMembers 项目成员列表
// GET /api/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": members})
}

// AddMember 添加项目成员
// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.svc.AddMember(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), &req); err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, nil)
}

// RemoveMember 移除项目成员
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	if err := h.svc.RemoveMember(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), c.Param("userId")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
