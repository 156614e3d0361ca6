package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Project      *ProjectHandler
	Vibe         *VibeHandler
	File         *FileHandler
	Comment      *CommentHandler
	Invitation   *InvitationHandler
	Activity     *ActivityHandler
	Notification *NotificationHandler
	WS           *WSHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, repos *repository.Repositories, cfg *config.Config, hub *realtime.Hub) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth, cfg),
		User:         NewUserHandler(svc.User),
		Project:      NewProjectHandler(svc.Project),
		Vibe:         NewVibeHandler(svc.Vibe),
		File:         NewFileHandler(svc.File),
		Comment:      NewCommentHandler(svc.Comment),
		Invitation:   NewInvitationHandler(svc.Invitation),
		Activity:     NewActivityHandler(svc.Activity),
		Notification: NewNotificationHandler(svc.Notification),
		WS:           NewWSHandler(hub, repos.Project),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError 按业务错误类型映射响应
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "Resource not found")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "Access denied")
	case errors.Is(err, service.ErrConflict):
		Conflict(c, "Resource conflict")
	case errors.Is(err, service.ErrInvalid):
		BadRequest(c, "Invalid request")
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetUserRole 从上下文获取用户角色
func GetUserRole(c *gin.Context) entity.Role {
	return entity.Role(c.GetString("user_role"))
}

// GetLimitOffset 从请求获取分页参数
func GetLimitOffset(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0

	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := c.Query("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// ============================================================
// User Handler
// ============================================================

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		InternalError(c, "list users: "+err.Error())
		return
	}
	Success(c, gin.H{"items": users})
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, user)
}

// Search 搜索用户（按名字/邮箱模糊匹配）
// GET /api/users/search?q=xxx
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		BadRequest(c, "Search query is required")
		return
	}
	users, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		InternalError(c, "search users: "+err.Error())
		return
	}
	Success(c, gin.H{"items": users})
}

// Me 当前登录用户
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, user)
}

// UpdateMe 更新当前用户资料
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, user)
}
