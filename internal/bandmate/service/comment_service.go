package service

import (
	"context"
	"fmt"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
)

// CommentService 评论服务
type CommentService struct {
	commentRepo     *repository.CommentRepository
	cutRepo         *repository.CutRepository
	vibeRepo        *repository.VibeRepository
	projectRepo     *repository.ProjectRepository
	userRepo        *repository.UserRepository
	activitySvc     *ActivityService
	notificationSvc *NotificationService
}

// NewCommentService 创建评论服务
func NewCommentService(
	commentRepo *repository.CommentRepository,
	cutRepo *repository.CutRepository,
	vibeRepo *repository.VibeRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	activitySvc *ActivityService,
	notificationSvc *NotificationService,
) *CommentService {
	return &CommentService{
		commentRepo:     commentRepo,
		cutRepo:         cutRepo,
		vibeRepo:        vibeRepo,
		projectRepo:     projectRepo,
		userRepo:        userRepo,
		activitySvc:     activitySvc,
		notificationSvc: notificationSvc,
	}
}

// CreateCommentRequest 创建评论请求
type CreateCommentRequest struct {
	Body      string   `json:"body" binding:"required"`
	ParentID  *string  `json:"parent_id"`
	Timestamp *float64 `json:"timestamp"`
}

// UpdateCommentRequest 更新评论请求
type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// Create 在cut上发表评论或回复。回复只有一级，
// 对回复的回复挂到顶级评论下。
func (s *CommentService) Create(ctx context.Context, cutID, userID string, role entity.Role, req *CreateCommentRequest) (*entity.Comment, error) {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return nil, err
	}

	var parent *entity.Comment
	parentID := req.ParentID
	if parentID != nil {
		parent, err = s.commentRepo.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.CutID != cutID {
			return nil, ErrInvalid
		}
		if parent.ParentID != nil {
			// 压平到顶级评论
			top, err := s.commentRepo.FindByID(ctx, *parent.ParentID)
			if err != nil {
				return nil, err
			}
			parent = top
			parentID = &top.ID
		}
	}

	comment := &entity.Comment{
		ID:        generateID(),
		CutID:     cutID,
		ParentID:  parentID,
		AuthorID:  userID,
		Body:      req.Body,
		Timestamp: req.Timestamp,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	link := fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s#comment-%s", project.ID, vibe.ID, cutID, comment.ID)

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.CommentAddedMeta{
			CutName:     cut.Name,
			VibeName:    vibe.Name,
			ProjectName: project.Name,
			IsReply:     parentID != nil,
			CommentID:   comment.ID,
		}, link)

	// 回复时通知被回复者
	if parent != nil && parent.AuthorID != userID {
		author, err := s.userRepo.FindByID(ctx, userID)
		authorName := "Someone"
		if err == nil {
			authorName = author.Name
		}
		s.notificationSvc.Notify(ctx, &NotifyRequest{
			RecipientID:  parent.AuthorID,
			Type:         entity.NotificationInfo,
			Title:        "New reply",
			Message:      fmt.Sprintf("%s replied to your comment on %s", authorName, cut.Name),
			ResourceLink: link,
		})
	}

	comment.Author, _ = s.userRepo.FindByID(ctx, userID)
	return comment, nil
}

// List cut下评论列表（顶级评论带回复）
func (s *CommentService) List(ctx context.Context, cutID, userID string, role entity.Role) ([]entity.Comment, error) {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByCut(ctx, cutID)
}

// Update 编辑评论，仅作者本人
func (s *CommentService) Update(ctx context.Context, commentID, userID string, req *UpdateCommentRequest) (*entity.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, ErrForbidden
	}
	comment.Body = req.Body
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

// Delete 删除评论，作者本人、项目owner或管理员
func (s *CommentService) Delete(ctx context.Context, commentID, userID string, role entity.Role) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID && !role.IsAdmin() {
		cut, err := s.cutRepo.FindByID(ctx, comment.CutID)
		if err != nil {
			return err
		}
		vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
		if err != nil {
			return err
		}
		project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
		if err != nil {
			return err
		}
		if project.OwnerID != userID {
			return ErrForbidden
		}
	}
	return s.commentRepo.Delete(ctx, commentID)
}
