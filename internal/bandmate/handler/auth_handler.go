package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// setAuthCookie 把access token写入httpOnly cookie
func (h *AuthHandler) setAuthCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", token, maxAge, "/", "", h.cfg.Server.Mode == "release", true)
}

// Register 邮箱注册
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, pair, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			Conflict(c, "Email already registered")
			return
		}
		ServiceError(c, err)
		return
	}

	h.setAuthCookie(c, pair.AccessToken, int(pair.ExpiresIn))
	Created(c, gin.H{"user": user, "tokens": pair})
}

// Login 邮箱登录
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			Unauthorized(c, "Invalid email or password")
			return
		}
		ServiceError(c, err)
		return
	}

	h.setAuthCookie(c, pair.AccessToken, int(pair.ExpiresIn))
	Success(c, gin.H{"user": user, "tokens": pair})
}

// GoogleLogin 跳转到Google授权页
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, err := h.svc.GetGoogleLoginURL(c.Request.Context())
	if err != nil {
		InternalError(c, "google login: "+err.Error())
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback Google授权回调
// GET /api/auth/google/callback?code=xxx&state=xxx
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		BadRequest(c, "Missing authorization code")
		return
	}

	user, pair, err := h.svc.HandleGoogleCallback(c.Request.Context(), code, state)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			Unauthorized(c, "Invalid OAuth state")
			return
		}
		ServiceError(c, err)
		return
	}

	h.setAuthCookie(c, pair.AccessToken, int(pair.ExpiresIn))
	Success(c, gin.H{"user": user, "tokens": pair})
}

// Refresh 刷新token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			Unauthorized(c, "Invalid or expired refresh token")
			return
		}
		ServiceError(c, err)
		return
	}

	h.setAuthCookie(c, pair.AccessToken, int(pair.ExpiresIn))
	Success(c, pair)
}

// Logout 登出，吊销全部refresh token并清cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	h.setAuthCookie(c, "", -1)
	Success(c, nil)
}
