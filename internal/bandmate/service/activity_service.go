package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
)

// ActivityService 活动流服务
type ActivityService struct {
	repo        *repository.ActivityRepository
	projectRepo *repository.ProjectRepository
	hub         *realtime.Hub
	logger      *zap.Logger
}

// NewActivityService 创建活动流服务
func NewActivityService(
	repo *repository.ActivityRepository,
	projectRepo *repository.ProjectRepository,
	hub *realtime.Hub,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		repo:        repo,
		projectRepo: projectRepo,
		hub:         hub,
		logger:      logger,
	}
}

// Record 记录一条活动。先落库，成功后推送到项目房间。
// 推送失败不影响调用方，活动流以数据库为准。
func (s *ActivityService) Record(ctx context.Context, actorID, projectID string, meta entity.ActivityMeta, resourceLink string) (*entity.Activity, error) {
	activity := &entity.Activity{
		ID:           generateID(),
		Type:         meta.ActivityType(),
		ActorID:      actorID,
		ProjectID:    projectID,
		Metadata:     meta.Payload(),
		ResourceLink: resourceLink,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		s.logger.Error("record activity failed",
			zap.String("project_id", projectID),
			zap.String("type", string(activity.Type)),
			zap.Error(err))
		return nil, fmt.Errorf("record activity: %w", err)
	}

	s.hub.EmitToProject(projectID, realtime.Event{
		Event: "activity",
		Data:  activity,
	})
	return activity, nil
}

// List 用户活动流。非管理员用projectId过滤非成员项目时直接返回空页，
// 不暴露项目是否存在。
func (s *ActivityService) List(ctx context.Context, userID string, role entity.Role, filter repository.ActivityFilter) ([]entity.Activity, int64, error) {
	if filter.ProjectID != "" && !role.IsAdmin() {
		ok, err := s.projectRepo.IsMember(ctx, filter.ProjectID, userID)
		if err != nil {
			return nil, 0, fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return []entity.Activity{}, 0, nil
		}
	}
	return s.repo.List(ctx, userID, role.IsAdmin(), filter)
}

// UnreadCount 未读活动数
func (s *ActivityService) UnreadCount(ctx context.Context, userID string, role entity.Role) (int64, error) {
	return s.repo.UnreadCount(ctx, userID, role.IsAdmin())
}

// visible 校验活动存在且对用户可见
func (s *ActivityService) visible(ctx context.Context, activityID, userID string, role entity.Role) error {
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		return err
	}
	return projectAccess(ctx, s.projectRepo, activity.ProjectID, userID, role)
}

// MarkRead 标记单条已读（重复标记无副作用）
func (s *ActivityService) MarkRead(ctx context.Context, activityID, userID string, role entity.Role) error {
	if err := s.visible(ctx, activityID, userID, role); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, activityID, userID)
}

// MarkAllRead 全部标记已读，返回新标记数量
func (s *ActivityService) MarkAllRead(ctx context.Context, userID string, role entity.Role) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, role.IsAdmin())
}

// Dismiss 从自己的活动流中隐藏一条活动
func (s *ActivityService) Dismiss(ctx context.Context, activityID, userID string, role entity.Role) error {
	if err := s.visible(ctx, activityID, userID, role); err != nil {
		return err
	}
	return s.repo.Dismiss(ctx, activityID, userID)
}

// Undismiss 恢复一条已隐藏的活动
func (s *ActivityService) Undismiss(ctx context.Context, activityID, userID string) error {
	return s.repo.Undismiss(ctx, activityID, userID)
}

// DismissAll 隐藏当前可见的全部活动，返回隐藏数量
func (s *ActivityService) DismissAll(ctx context.Context, userID string, role entity.Role) (int64, error) {
	return s.repo.DismissAll(ctx, userID, role.IsAdmin())
}

// CleanupOlderThan 清理早于maxAge的活动
func (s *ActivityService) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("cleaned up old activities",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
