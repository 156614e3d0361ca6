package repository

import (
	"context"
	"errors"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库（含成员关系）
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// FindBySlug 根据slug查找项目
func (r *ProjectRepository) FindBySlug(ctx context.Context, slug string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// ListForUser 用户可见的项目列表：管理员全量，成员按成员关系过滤
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string, isAdmin bool, limit, offset int) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{})
	if !isAdmin {
		query = query.Where("projects.id IN (SELECT pm.project_id FROM project_members pm WHERE pm.user_id = ?)", userID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Owner").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error
	return projects, total, err
}

// Delete 删除项目并级联清理其下所有数据（多语句事务）
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cutIDs := tx.Model(&entity.Cut{}).Select("cuts.id").
			Joins("JOIN vibes ON vibes.id = cuts.vibe_id").
			Where("vibes.project_id = ?", id)

		if err := tx.Where("cut_id IN (?)", cutIDs).Delete(&entity.CutFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cut_id IN (?)", cutIDs).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vibe_id IN (SELECT id FROM vibes WHERE project_id = ?)", id).
			Delete(&entity.Cut{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&entity.Vibe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id IN (SELECT id FROM activities WHERE project_id = ?)", id).
			Delete(&entity.ActivityRead{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id IN (SELECT id FROM activities WHERE project_id = ?)", id).
			Delete(&entity.ActivityDismiss{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&entity.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&entity.Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&entity.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Project{}).Error
	})
}

// AddMember 加入成员，重复加入为幂等
func (r *ProjectRepository) AddMember(ctx context.Context, member *entity.ProjectMember) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", member.ProjectID, member.UserID).
		FirstOrCreate(member).Error
}

// RemoveMember 移除成员（已读/隐藏标记保留，重加成员时可见性即时恢复）
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&entity.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProjectIDs 用户所属的全部项目ID（连接建立时加入房间用）
func (r *ProjectRepository) ListProjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.ProjectMember{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &ids).Error
	return ids, err
}

// IsMember 用户是否为项目成员
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMembers 项目成员列表
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]entity.ProjectMember, error) {
	var members []entity.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// ListMemberUserIDs 项目成员的用户ID集合（通知群发用）
func (r *ProjectRepository) ListMemberUserIDs(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.ProjectMember{}).
		Where("project_id = ?", projectID).
		Pluck("user_id", &ids).Error
	return ids, err
}
