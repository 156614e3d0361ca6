package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/shared/email"
)

// 邀请有效期
const invitationTTL = 7 * 24 * time.Hour

// InvitationService 项目邀请服务
type InvitationService struct {
	invRepo         *repository.InvitationRepository
	projectRepo     *repository.ProjectRepository
	userRepo        *repository.UserRepository
	mail            *email.Service
	activitySvc     *ActivityService
	notificationSvc *NotificationService
	hub             *realtime.Hub
	baseURL         string
	logger          *zap.Logger
}

// NewInvitationService 创建邀请服务
func NewInvitationService(
	invRepo *repository.InvitationRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	mail *email.Service,
	activitySvc *ActivityService,
	notificationSvc *NotificationService,
	hub *realtime.Hub,
	baseURL string,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invRepo:         invRepo,
		projectRepo:     projectRepo,
		userRepo:        userRepo,
		mail:            mail,
		activitySvc:     activitySvc,
		notificationSvc: notificationSvc,
		hub:             hub,
		baseURL:         baseURL,
		logger:          logger,
	}
}

// InviteRequest 发起邀请请求
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Invite 邀请邮箱加入项目，仅owner或管理员。
// 已是成员或已有待处理邀请时返回冲突。
func (s *InvitationService) Invite(ctx context.Context, projectID, actorID string, role entity.Role, req *InviteRequest) (*entity.Invitation, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID && !role.IsAdmin() {
		return nil, ErrForbidden
	}

	addr := strings.ToLower(strings.TrimSpace(req.Email))

	// 已注册且已是成员直接冲突
	if existing, err := s.userRepo.FindByEmail(ctx, addr); err == nil {
		ok, err := s.projectRepo.IsMember(ctx, projectID, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if ok {
			return nil, ErrConflict
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if _, err := s.invRepo.FindPending(ctx, projectID, addr); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find pending invitation: %w", err)
	}

	inv := &entity.Invitation{
		ID:        generateID(),
		ProjectID: projectID,
		Email:     addr,
		Token:     uuid.New().String(),
		InvitedBy: actorID,
		Status:    entity.InvitationPending,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	if err := s.invRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if s.mail.IsConfigured() {
		inviter, err := s.userRepo.FindByID(ctx, actorID)
		inviterName := "A collaborator"
		if err == nil {
			inviterName = inviter.Name
		}
		acceptURL := fmt.Sprintf("%s/invitations/%s", s.baseURL, inv.Token)
		if err := s.mail.SendInvitationEmail(addr, inviterName, project.Name, acceptURL); err != nil {
			s.logger.Warn("send invitation email failed",
				zap.String("invitation_id", inv.ID),
				zap.Error(err))
		}
	}

	return inv, nil
}

// ListByProject 项目邀请列表，仅owner或管理员
func (s *InvitationService) ListByProject(ctx context.Context, projectID, userID string, role entity.Role) ([]entity.Invitation, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID && !role.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.invRepo.ListByProject(ctx, projectID)
}

// Accept 接受邀请。登录用户的邮箱必须与受邀邮箱一致。
func (s *InvitationService) Accept(ctx context.Context, token, userID string) (*entity.Invitation, error) {
	inv, err := s.invRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return nil, ErrForbidden
	}

	if err := s.projectRepo.AddMember(ctx, &entity.ProjectMember{
		ProjectID: inv.ProjectID,
		UserID:    userID,
		AddedBy:   inv.InvitedBy,
	}); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	inv.Status = entity.InvitationAccepted
	if err := s.invRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	s.hub.JoinUserToRoom(userID, inv.ProjectID)

	projectName := inv.ProjectID
	if inv.Project != nil {
		projectName = inv.Project.Name
	}
	s.activitySvc.Record(ctx, userID, inv.ProjectID,
		entity.MemberAddedMeta{MemberName: user.Name, ProjectName: projectName},
		"/projects/"+inv.ProjectID)

	// 除新成员外的全部成员都收到加入通知（邀请人也是成员）
	memberIDs, err := s.projectRepo.ListMemberUserIDs(ctx, inv.ProjectID)
	if err != nil {
		s.logger.Warn("list members for join notice failed",
			zap.String("project_id", inv.ProjectID),
			zap.Error(err))
		return inv, nil
	}
	recipients := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != userID {
			recipients = append(recipients, id)
		}
	}
	s.notificationSvc.NotifyMany(ctx, recipients, &NotifyRequest{
		Type:         entity.NotificationSuccess,
		Title:        "Invitation accepted",
		Message:      fmt.Sprintf("%s joined %s", user.Name, projectName),
		ResourceLink: "/projects/" + inv.ProjectID,
	})

	return inv, nil
}

// Decline 拒绝邀请
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	inv, err := s.invRepo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	inv.Status = entity.InvitationDeclined
	if err := s.invRepo.Update(ctx, inv); err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	return nil
}
