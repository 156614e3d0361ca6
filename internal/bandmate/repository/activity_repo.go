package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityFilter 活动流查询条件
type ActivityFilter struct {
	Type      entity.ActivityType
	ProjectID string
	Unread    bool
	Limit     int
	Offset    int
}

// ActivityRepository 活动流仓库
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建活动流仓库
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create 写入一条活动
func (r *ActivityRepository) Create(ctx context.Context, a *entity.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// visibleQuery 用户可见活动的基础查询：
// 排除已忽略的，非管理员只看自己所在项目的活动
func (r *ActivityRepository) visibleQuery(ctx context.Context, userID string, isAdmin bool) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&entity.Activity{}).
		Where("NOT EXISTS (SELECT 1 FROM activity_dismissals ad WHERE ad.activity_id = activities.id AND ad.user_id = ?)", userID)
	if !isAdmin {
		q = q.Where("activities.project_id IN (SELECT pm.project_id FROM project_members pm WHERE pm.user_id = ?)", userID)
	}
	return q
}

// List 用户活动流（分页，附带总数与已读标记）
func (r *ActivityRepository) List(ctx context.Context, userID string, isAdmin bool, filter ActivityFilter) ([]entity.Activity, int64, error) {
	q := r.visibleQuery(ctx, userID, isAdmin)
	if filter.Type != "" {
		q = q.Where("activities.type = ?", filter.Type)
	}
	if filter.ProjectID != "" {
		q = q.Where("activities.project_id = ?", filter.ProjectID)
	}
	if filter.Unread {
		q = q.Where("NOT EXISTS (SELECT 1 FROM activity_reads ar WHERE ar.activity_id = activities.id AND ar.user_id = ?)", userID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []entity.Activity
	err := q.Preload("Actor").
		Order("activities.created_at DESC, activities.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&activities).Error
	if err != nil {
		return nil, 0, err
	}

	if err := r.fillReadMarks(ctx, userID, activities); err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// fillReadMarks 为当前页的活动补充已读标记
func (r *ActivityRepository) fillReadMarks(ctx context.Context, userID string, activities []entity.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	var readIDs []string
	err := r.db.WithContext(ctx).
		Model(&entity.ActivityRead{}).
		Where("user_id = ? AND activity_id IN ?", userID, ids).
		Pluck("activity_id", &readIDs).Error
	if err != nil {
		return err
	}
	readSet := make(map[string]struct{}, len(readIDs))
	for _, id := range readIDs {
		readSet[id] = struct{}{}
	}
	for i := range activities {
		_, activities[i].IsRead = readSet[activities[i].ID]
	}
	return nil
}

// FindByID 根据ID查找活动
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*entity.Activity, error) {
	var a entity.Activity
	err := r.db.WithContext(ctx).Preload("Actor").Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UnreadCount 未读活动数（不含已忽略）
func (r *ActivityRepository) UnreadCount(ctx context.Context, userID string, isAdmin bool) (int64, error) {
	var count int64
	err := r.visibleQuery(ctx, userID, isAdmin).
		Where("NOT EXISTS (SELECT 1 FROM activity_reads ar WHERE ar.activity_id = activities.id AND ar.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}

// MarkRead 标记单条已读（幂等）
func (r *ActivityRepository) MarkRead(ctx context.Context, activityID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.ActivityRead{ActivityID: activityID, UserID: userID, CreatedAt: time.Now()}).Error
}

// MarkAllRead 全部标记已读，返回实际新标记的数量
func (r *ActivityRepository) MarkAllRead(ctx context.Context, userID string, isAdmin bool) (int64, error) {
	var marked int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&entity.Activity{}).
			Select("activities.id").
			Where("NOT EXISTS (SELECT 1 FROM activity_dismissals ad WHERE ad.activity_id = activities.id AND ad.user_id = ?)", userID).
			Where("NOT EXISTS (SELECT 1 FROM activity_reads ar WHERE ar.activity_id = activities.id AND ar.user_id = ?)", userID)
		if !isAdmin {
			q = q.Where("activities.project_id IN (SELECT pm.project_id FROM project_members pm WHERE pm.user_id = ?)", userID)
		}
		var ids []string
		if err := q.Pluck("activities.id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := time.Now()
		reads := make([]entity.ActivityRead, 0, len(ids))
		for _, id := range ids {
			reads = append(reads, entity.ActivityRead{ActivityID: id, UserID: userID, CreatedAt: now})
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads)
		if res.Error != nil {
			return res.Error
		}
		marked = res.RowsAffected
		return nil
	})
	return marked, err
}

// Dismiss 忽略一条活动（幂等）
func (r *ActivityRepository) Dismiss(ctx context.Context, activityID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.ActivityDismiss{ActivityID: activityID, UserID: userID, CreatedAt: time.Now()}).Error
}

// Undismiss 恢复一条已忽略的活动
func (r *ActivityRepository) Undismiss(ctx context.Context, activityID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Delete(&entity.ActivityDismiss{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissAll 忽略当前可见的全部活动，返回新忽略的数量
func (r *ActivityRepository) DismissAll(ctx context.Context, userID string, isAdmin bool) (int64, error) {
	var dismissed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&entity.Activity{}).
			Select("activities.id").
			Where("NOT EXISTS (SELECT 1 FROM activity_dismissals ad WHERE ad.activity_id = activities.id AND ad.user_id = ?)", userID)
		if !isAdmin {
			q = q.Where("activities.project_id IN (SELECT pm.project_id FROM project_members pm WHERE pm.user_id = ?)", userID)
		}
		var ids []string
		if err := q.Pluck("activities.id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]entity.ActivityDismiss, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, entity.ActivityDismiss{ActivityID: id, UserID: userID, CreatedAt: now})
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		dismissed = res.RowsAffected
		return nil
	})
	return dismissed, err
}

// DeleteOlderThan 清理过期活动及其读标记，返回删除的活动数
func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&entity.Activity{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("activity_id IN (?)", old).Delete(&entity.ActivityRead{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id IN (?)", old).Delete(&entity.ActivityDismiss{}).Error; err != nil {
			return err
		}
		res := tx.Where("created_at < ?", cutoff).Delete(&entity.Activity{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
