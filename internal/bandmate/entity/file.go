package entity

import "time"

// 文件种类
const (
	FileKindAudio = "audio"
	FileKindStem  = "stem"
)

// CutFile 挂在 cut 下的音频/分轨文件
// StoragePath 是存储后端内的相对路径，cut 移动时在事务里批量改写
type CutFile struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	CutID       string     `json:"cut_id" gorm:"size:32;not null;index"`
	Kind        string     `json:"kind" gorm:"size:16;not null;default:audio"`
	FileName    string     `json:"file_name" gorm:"size:256;not null"`
	StoragePath string     `json:"-" gorm:"size:512;not null"`
	Size        int64      `json:"size" gorm:"not null;default:0"`
	ContentType string     `json:"content_type" gorm:"size:128"`
	ShareToken  *string    `json:"share_token,omitempty" gorm:"size:36;uniqueIndex"`
	UploadedBy  string     `json:"uploaded_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Cut *Cut `json:"cut,omitempty" gorm:"foreignKey:CutID"`
}

func (CutFile) TableName() string {
	return "cut_files"
}
