package handler

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
)

// FileHandler cut文件处理器
type FileHandler struct {
	svc *service.FileService
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

// Upload 上传文件到cut
// POST /api/cuts/:id/files (multipart: file, kind)
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required")
		return
	}
	kind := c.PostForm("kind")

	file, err := h.svc.Upload(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c), kind, header)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, file)
}

// List cut下文件列表
// GET /api/cuts/:id/files
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.svc.List(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": files})
}

// serveFile 把文件内容写回响应
func serveFile(c *gin.Context, file *entity.CutFile, rc io.ReadCloser) {
	defer rc.Close()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, file.FileName))
	c.DataFromReader(200, file.Size, file.ContentType, rc, nil)
}

// Download 下载文件
// GET /api/files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	file, rc, err := h.svc.Download(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	serveFile(c, file, rc)
}

// DownloadShared 通过分享token下载（无需登录）
// GET /api/shared/:token
func (h *FileHandler) DownloadShared(c *gin.Context) {
	file, rc, err := h.svc.DownloadShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	serveFile(c, file, rc)
}

// Share 生成分享链接
// POST /api/files/:id/share
func (h *FileHandler) Share(c *gin.Context) {
	file, err := h.svc.Share(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, file)
}

// Unshare 撤销分享链接
// DELETE /api/files/:id/share
func (h *FileHandler) Unshare(c *gin.Context) {
	if err := h.svc.Unshare(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// Delete 删除文件
// DELETE /api/files/:id
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
