package repository

import (
	"context"
	"errors"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
)

// CommentRepository 评论仓库
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 创建评论
func (r *CommentRepository) Create(ctx context.Context, c *entity.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update 更新评论内容
func (r *CommentRepository) Update(ctx context.Context, c *entity.Comment) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete 删除评论及其回复
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindByID 根据ID查找评论
func (r *CommentRepository) FindByID(ctx context.Context, id string) (*entity.Comment, error) {
	var c entity.Comment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByCut cut下顶级评论列表（携带回复，回复按时间升序）
func (r *CommentRepository) ListByCut(ctx context.Context, cutID string) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Replies.Author").
		Where("cut_id = ? AND parent_id IS NULL", cutID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// CountByCut cut下评论总数（含回复）
func (r *CommentRepository) CountByCut(ctx context.Context, cutID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Comment{}).
		Where("cut_id = ?", cutID).
		Count(&count).Error
	return count, err
}
