package repository

import (
	"context"
	"errors"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// FileRepository cut文件仓库
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建文件仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create 创建文件记录
func (r *FileRepository) Create(ctx context.Context, f *entity.CutFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// Update 更新文件记录
func (r *FileRepository) Update(ctx context.Context, f *entity.CutFile) error {
	return r.db.WithContext(ctx).Save(f).Error
}

// Delete 删除文件记录
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.CutFile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID 根据ID查找文件
func (r *FileRepository) FindByID(ctx context.Context, id string) (*entity.CutFile, error) {
	var f entity.CutFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// FindByShareToken 根据分享token查找文件
func (r *FileRepository) FindByShareToken(ctx context.Context, token string) (*entity.CutFile, error) {
	var f entity.CutFile
	err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByCut cut下文件列表
func (r *FileRepository) ListByCut(ctx context.Context, cutID string) ([]entity.CutFile, error) {
	var files []entity.CutFile
	err := r.db.WithContext(ctx).
		Where("cut_id = ?", cutID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}
