package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// InvitationRepository 邀请仓库
type InvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository 创建邀请仓库
func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create 创建邀请
func (r *InvitationRepository) Create(ctx context.Context, inv *entity.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// Update 更新邀请状态
func (r *InvitationRepository) Update(ctx context.Context, inv *entity.Invitation) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// FindByToken 根据token查找待处理且未过期的邀请
func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*entity.Invitation, error) {
	var inv entity.Invitation
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Inviter").
		Where("token = ? AND status = ? AND expires_at > ?", token, entity.InvitationPending, time.Now()).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindPending 项目+邮箱维度查找待处理邀请（避免重复邀请）
func (r *InvitationRepository) FindPending(ctx context.Context, projectID, email string) (*entity.Invitation, error) {
	var inv entity.Invitation
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND email = ? AND status = ? AND expires_at > ?",
			projectID, email, entity.InvitationPending, time.Now()).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListByProject 项目邀请列表
func (r *InvitationRepository) ListByProject(ctx context.Context, projectID string) ([]entity.Invitation, error) {
	var invs []entity.Invitation
	err := r.db.WithContext(ctx).
		Preload("Inviter").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}
