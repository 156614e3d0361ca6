package entity

import "time"

// Comment cut 上的评论，ParentID 非空表示回复
type Comment struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	CutID     string     `json:"cut_id" gorm:"size:32;not null;index"`
	ParentID  *string    `json:"parent_id,omitempty" gorm:"size:32;index"`
	AuthorID  string     `json:"author_id" gorm:"size:32;not null"`
	Body      string     `json:"body" gorm:"type:text;not null"`
	Timestamp *float64   `json:"timestamp,omitempty"` // 音频内定位（秒）
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Author  *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Replies []Comment `json:"replies,omitempty" gorm:"foreignKey:ParentID"`
}

func (Comment) TableName() string {
	return "comments"
}
