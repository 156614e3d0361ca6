package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// VibeRepository vibe仓库
type VibeRepository struct {
	db *gorm.DB
}

// NewVibeRepository 创建vibe仓库
func NewVibeRepository(db *gorm.DB) *VibeRepository {
	return &VibeRepository{db: db}
}

// Create 创建vibe
func (r *VibeRepository) Create(ctx context.Context, vibe *entity.Vibe) error {
	return r.db.WithContext(ctx).Create(vibe).Error
}

// Update 更新vibe
func (r *VibeRepository) Update(ctx context.Context, vibe *entity.Vibe) error {
	return r.db.WithContext(ctx).Save(vibe).Error
}

// Delete 删除vibe及其下属cut、文件记录和评论
func (r *VibeRepository) Delete(ctx context.Context, vibeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cutIDs := tx.Model(&entity.Cut{}).Select("id").Where("vibe_id = ?", vibeID)
		if err := tx.Where("cut_id IN (?)", cutIDs).Delete(&entity.CutFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cut_id IN (?)", cutIDs).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vibe_id = ?", vibeID).Delete(&entity.Cut{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", vibeID).Delete(&entity.Vibe{}).Error
	})
}

// FindByID 根据ID查找vibe
func (r *VibeRepository) FindByID(ctx context.Context, id string) (*entity.Vibe, error) {
	var vibe entity.Vibe
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vibe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vibe, nil
}

// FindBySlug 根据项目+slug查找vibe
func (r *VibeRepository) FindBySlug(ctx context.Context, projectID, slug string) (*entity.Vibe, error) {
	var vibe entity.Vibe
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND slug = ?", projectID, slug).
		First(&vibe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vibe, nil
}

// ListByProject 项目下vibe列表
func (r *VibeRepository) ListByProject(ctx context.Context, projectID string) ([]entity.Vibe, error) {
	var vibes []entity.Vibe
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&vibes).Error
	return vibes, err
}

// CutRepository cut仓库
type CutRepository struct {
	db *gorm.DB
}

// NewCutRepository 创建cut仓库
func NewCutRepository(db *gorm.DB) *CutRepository {
	return &CutRepository{db: db}
}

// Create 创建cut
func (r *CutRepository) Create(ctx context.Context, cut *entity.Cut) error {
	return r.db.WithContext(ctx).Create(cut).Error
}

// Update 更新cut
func (r *CutRepository) Update(ctx context.Context, cut *entity.Cut) error {
	return r.db.WithContext(ctx).Save(cut).Error
}

// Delete 删除cut及其文件记录和评论
func (r *CutRepository) Delete(ctx context.Context, cutID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cut_id = ?", cutID).Delete(&entity.CutFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cut_id = ?", cutID).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cutID).Delete(&entity.Cut{}).Error
	})
}

// FindByID 根据ID查找cut
func (r *CutRepository) FindByID(ctx context.Context, id string) (*entity.Cut, error) {
	var cut entity.Cut
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cut, nil
}

// FindByIDWithFiles 根据ID查找cut并加载文件
func (r *CutRepository) FindByIDWithFiles(ctx context.Context, id string) (*entity.Cut, error) {
	var cut entity.Cut
	err := r.db.WithContext(ctx).
		Preload("Files").
		Where("id = ?", id).
		First(&cut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cut, nil
}

// ListByVibe vibe下cut列表（按sequence排序）
func (r *CutRepository) ListByVibe(ctx context.Context, vibeID string) ([]entity.Cut, error) {
	var cuts []entity.Cut
	err := r.db.WithContext(ctx).
		Preload("Files").
		Where("vibe_id = ?", vibeID).
		Order("sequence ASC, created_at ASC").
		Find(&cuts).Error
	return cuts, err
}

// NextSequence vibe内下一个序号
func (r *CutRepository) NextSequence(ctx context.Context, vibeID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&entity.Cut{}).
		Select("MAX(sequence)").
		Where("vibe_id = ?", vibeID).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

// Move 将cut移动到另一个vibe，并同步重写文件存储路径前缀
func (r *CutRepository) Move(ctx context.Context, cutID, toVibeID string, newSequence int, oldPrefix, newPrefix string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Cut{}).
			Where("id = ?", cutID).
			Updates(map[string]interface{}{
				"vibe_id":  toVibeID,
				"sequence": newSequence,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if oldPrefix != "" && oldPrefix != newPrefix {
			// 路径前缀整体替换，保持文件记录与实际存储一致
			if err := tx.Model(&entity.CutFile{}).
				Where("cut_id = ? AND storage_path LIKE ?", cutID, escapeLike(oldPrefix)+"%").
				Update("storage_path", gorm.Expr("replace(storage_path, ?, ?)", oldPrefix, newPrefix)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
