package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// FindByID 查找收件人自己的通知
func (r *NotificationRepository) FindByID(ctx context.Context, id, recipientID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// List 用户通知列表（分页）
func (r *NotificationRepository) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]entity.Notification, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ns []entity.Notification
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&ns).Error
	return ns, total, err
}

// UnreadCount 未读通知数
func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 标记已读，只能操作自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 全部标记已读，返回实际更新数量
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Delete 删除自己的通知
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&entity.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEmailSent 记录邮件兜底已发送
func (r *NotificationRepository) MarkEmailSent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ?", id).
		Update("email_sent", true).Error
}

// DeleteReadOlderThan 清理过期的已读通知
func (r *NotificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
