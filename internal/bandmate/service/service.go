package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/storage"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
	"github.com/Grimothy/BandMatev2-sub001/internal/shared/email"
)

// 业务错误
var (
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid argument")
)

// Services 服务集合
type Services struct {
	Auth         *AuthService
	User         *UserService
	Project      *ProjectService
	Vibe         *VibeService
	File         *FileService
	Comment      *CommentService
	Invitation   *InvitationService
	Activity     *ActivityService
	Notification *NotificationService
}

// NewServices 创建服务集合
func NewServices(
	repos *repository.Repositories,
	rdb *redis.Client,
	cfg *config.Config,
	hub *realtime.Hub,
	store storage.BlobStore,
	logger *zap.Logger,
) *Services {
	var sender EmailSender
	mail := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	if mail.IsConfigured() {
		sender = mail
	}

	notificationSvc := NewNotificationService(repos.Notification, repos.User, hub, sender, logger)
	activitySvc := NewActivityService(repos.Activity, repos.Project, hub, logger)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, rdb, cfg, logger),
		User:         NewUserService(repos.User),
		Project:      NewProjectService(repos.Project, repos.User, activitySvc, notificationSvc, hub),
		Vibe:         NewVibeService(repos.Vibe, repos.Cut, repos.Project, store, activitySvc),
		File:         NewFileService(repos.File, repos.Cut, repos.Vibe, repos.Project, store, activitySvc, cfg.Storage.MaxUpload),
		Comment:      NewCommentService(repos.Comment, repos.Cut, repos.Vibe, repos.Project, repos.User, activitySvc, notificationSvc),
		Invitation:   NewInvitationService(repos.Invitation, repos.Project, repos.User, mail, activitySvc, notificationSvc, hub, cfg.Server.BaseURL, logger),
		Activity:     activitySvc,
		Notification: notificationSvc,
	}
}

// generateID 生成32位实体ID
func generateID() string {
	return uuid.New().String()[:32]
}

// projectAccess 校验用户对项目的访问权（管理员或成员）
func projectAccess(ctx context.Context, projectRepo *repository.ProjectRepository, projectID, userID string, role entity.Role) error {
	if role.IsAdmin() {
		return nil
	}
	ok, err := projectRepo.IsMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// UserService 用户服务
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAll 获取所有活跃用户
func (s *UserService) ListAll(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListActive(ctx)
}

// Search 搜索用户（按名字/邮箱模糊匹配）
func (s *UserService) Search(ctx context.Context, query string) ([]entity.User, error) {
	return s.repo.Search(ctx, query)
}

// UpdateProfileRequest 更新个人资料请求
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateProfile 更新个人资料
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
