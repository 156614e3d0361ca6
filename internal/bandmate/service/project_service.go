package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/google/uuid"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
)

// ProjectService 项目服务
type ProjectService struct {
	projectRepo     *repository.ProjectRepository
	userRepo        *repository.UserRepository
	activitySvc     *ActivityService
	notificationSvc *NotificationService
	hub             *realtime.Hub
}

// NewProjectService 创建项目服务
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	activitySvc *ActivityService,
	notificationSvc *NotificationService,
	hub *realtime.Hub,
) *ProjectService {
	return &ProjectService{
		projectRepo:     projectRepo,
		userRepo:        userRepo,
		activitySvc:     activitySvc,
		notificationSvc: notificationSvc,
		hub:             hub,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CoverURL    *string `json:"cover_url"`
}

// ProjectListResult 项目列表结果
type ProjectListResult struct {
	Items  []entity.Project `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// uniqueSlug 生成项目slug，冲突时追加短后缀
func (s *ProjectService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "project"
	}
	_, err := s.projectRepo.FindBySlug(ctx, base)
	if errors.Is(err, repository.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}

// Create 创建项目。创建者自动成为成员并记录project_created活动。
func (s *ProjectService) Create(ctx context.Context, userID string, req *CreateProjectRequest) (*entity.Project, error) {
	sl, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}

	project := &entity.Project{
		ID:          generateID(),
		Slug:        sl,
		Name:        req.Name,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		OwnerID:     userID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if err := s.projectRepo.AddMember(ctx, &entity.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		AddedBy:   userID,
	}); err != nil {
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.ProjectCreatedMeta{ProjectName: project.Name},
		"/projects/"+project.ID)

	return project, nil
}

// Get 获取项目详情（含成员）
func (s *ProjectService) Get(ctx context.Context, projectID, userID string, role entity.Role) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, projectID, userID, role); err != nil {
		return nil, err
	}
	members, err := s.projectRepo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	project.Members = members
	return project, nil
}

// List 用户可见项目列表（管理员可见全部）
func (s *ProjectService) List(ctx context.Context, userID string, role entity.Role, limit, offset int) (*ProjectListResult, error) {
	projects, total, err := s.projectRepo.ListForUser(ctx, userID, role.IsAdmin(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return &ProjectListResult{
		Items:  projects,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Update 更新项目，仅owner或管理员
func (s *ProjectService) Update(ctx context.Context, projectID, userID string, role entity.Role, req *UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID && !role.IsAdmin() {
		return nil, ErrForbidden
	}

	if req.Name != nil && *req.Name != "" {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.CoverURL != nil {
		project.CoverURL = *req.CoverURL
	}
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// Delete 删除项目及其全部下属数据，仅owner或管理员
func (s *ProjectService) Delete(ctx context.Context, projectID, userID string, role entity.Role) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID && !role.IsAdmin() {
		return ErrForbidden
	}
	return s.projectRepo.Delete(ctx, projectID)
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddMember 添加项目成员。记录member_added活动并通知新成员。
func (s *ProjectService) AddMember(ctx context.Context, projectID, actorID string, role entity.Role, req *AddMemberRequest) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID && !role.IsAdmin() {
		return ErrForbidden
	}

	member, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return err
	}

	already, err := s.projectRepo.IsMember(ctx, projectID, member.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if already {
		return ErrConflict
	}

	if err := s.projectRepo.AddMember(ctx, &entity.ProjectMember{
		ProjectID: projectID,
		UserID:    member.ID,
		AddedBy:   actorID,
	}); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	s.hub.JoinUserToRoom(member.ID, projectID)

	s.activitySvc.Record(ctx, actorID, projectID,
		entity.MemberAddedMeta{MemberName: member.Name, ProjectName: project.Name},
		"/projects/"+projectID)

	s.notificationSvc.Notify(ctx, &NotifyRequest{
		RecipientID:  member.ID,
		Type:         entity.NotificationSuccess,
		Title:        "Added to project",
		Message:      fmt.Sprintf("You were added to %s", project.Name),
		ResourceLink: "/projects/" + projectID,
	})
	return nil
}

// RemoveMember 移除项目成员。owner不可被移除；被移除者的实时连接
// 立即退出项目房间。已读/已隐藏标记保留，重新加入后生效。
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, actorID string, role entity.Role, memberID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID && !role.IsAdmin() && actorID != memberID {
		return ErrForbidden
	}
	if memberID == project.OwnerID {
		return ErrInvalid
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, memberID); err != nil {
		return err
	}

	s.hub.EvictFromRoom(memberID, projectID)
	return nil
}

// ListMembers 项目成员列表
func (s *ProjectService) ListMembers(ctx context.Context, projectID, userID string, role entity.Role) ([]entity.ProjectMember, error) {
	if err := projectAccess(ctx, s.projectRepo, projectID, userID, role); err != nil {
		return nil, err
	}
	return s.projectRepo.ListMembers(ctx, projectID)
}
