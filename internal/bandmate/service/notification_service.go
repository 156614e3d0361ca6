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

// EmailSender 通知兜底邮件发送接口
type EmailSender interface {
	SendNotificationEmail(to, title, message, link string) error
}

// NotificationService 个人通知服务。通知先落库，再尝试实时推送；
// 收件人不在线（或调用方要求）时通过邮件兜底。
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	hub      *realtime.Hub
	sender   EmailSender
	logger   *zap.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	repo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	hub *realtime.Hub,
	sender EmailSender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:     repo,
		userRepo: userRepo,
		hub:      hub,
		sender:   sender,
		logger:   logger,
	}
}

// NotifyRequest 发送通知请求
type NotifyRequest struct {
	RecipientID  string
	Type         entity.NotificationType
	Title        string
	Message      string
	ResourceLink string
	ForceEmail   bool
}

// Notify 发送一条通知
func (s *NotificationService) Notify(ctx context.Context, req *NotifyRequest) (*entity.Notification, error) {
	if req.Type == "" {
		req.Type = entity.NotificationInfo
	}
	if !req.Type.Valid() {
		return nil, ErrInvalid
	}

	notification := &entity.Notification{
		ID:           generateID(),
		RecipientID:  req.RecipientID,
		Type:         req.Type,
		Title:        req.Title,
		Message:      req.Message,
		ResourceLink: req.ResourceLink,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Error("create notification failed",
			zap.String("recipient_id", req.RecipientID),
			zap.Error(err))
		return nil, fmt.Errorf("create notification: %w", err)
	}

	delivered := s.hub.EmitToUser(req.RecipientID, realtime.Event{
		Event: "notification",
		Data:  notification,
	})

	if !delivered || req.ForceEmail {
		s.sendEmailFallback(ctx, notification)
	}
	return notification, nil
}

// NotifyMany 给多个收件人发送同一通知
func (s *NotificationService) NotifyMany(ctx context.Context, recipientIDs []string, req *NotifyRequest) error {
	for _, id := range recipientIDs {
		r := *req
		r.RecipientID = id
		if _, err := s.Notify(ctx, &r); err != nil {
			s.logger.Warn("notify recipient failed",
				zap.String("recipient_id", id),
				zap.Error(err))
		}
	}
	return nil
}

// sendEmailFallback 邮件兜底。发送失败只记录日志，通知本体已落库。
func (s *NotificationService) sendEmailFallback(ctx context.Context, n *entity.Notification) {
	if s.sender == nil {
		return
	}
	recipient, err := s.userRepo.FindByID(ctx, n.RecipientID)
	if err != nil {
		s.logger.Warn("email fallback: recipient lookup failed",
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err))
		return
	}
	if err := s.sender.SendNotificationEmail(recipient.Email, n.Title, n.Message, n.ResourceLink); err != nil {
		s.logger.Warn("email fallback failed",
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err))
		return
	}
	if err := s.repo.MarkEmailSent(ctx, n.ID); err != nil {
		s.logger.Warn("mark email sent failed",
			zap.String("notification_id", n.ID),
			zap.Error(err))
		return
	}
	n.EmailSent = true
}

// List 用户通知列表
func (s *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]entity.Notification, int64, error) {
	return s.repo.List(ctx, recipientID, unreadOnly, limit, offset)
}

// UnreadCount 未读通知数
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkRead 标记已读。操作他人的通知一律返回 ErrNotFound，不泄露存在性。
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}

// MarkAllRead 全部标记已读，返回实际更新数量
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

// Delete 删除自己的通知
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	return s.repo.Delete(ctx, id, recipientID)
}

// CleanupReadOlderThan 清理早于maxAge的已读通知
func (s *NotificationService) CleanupReadOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted, err := s.repo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("cleaned up old notifications",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
