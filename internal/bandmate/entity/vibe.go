package entity

import "time"

// Vibe 歌曲概念（一个 vibe 下挂多个 cut 版本）
type Vibe struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID   string     `json:"project_id" gorm:"size:32;not null;index"`
	Slug        string     `json:"slug" gorm:"size:128;not null;index"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Description string     `json:"description" gorm:"type:text"`
	BPM         int        `json:"bpm" gorm:"default:0"`
	MusicalKey  string     `json:"musical_key" gorm:"size:16"`
	CreatedBy   string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Cuts    []Cut    `json:"cuts,omitempty" gorm:"foreignKey:VibeID"`
}

func (Vibe) TableName() string {
	return "vibes"
}

// Cut 具体的版本（携带音频/分轨文件、评论和歌词）
type Cut struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	VibeID    string     `json:"vibe_id" gorm:"size:32;not null;index"`
	Name      string     `json:"name" gorm:"size:128;not null"`
	Notes     string     `json:"notes" gorm:"type:text"`
	Lyrics    string     `json:"lyrics" gorm:"type:text"`
	Sequence  int        `json:"sequence" gorm:"not null;default:0"`
	CreatedBy string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Vibe  *Vibe     `json:"vibe,omitempty" gorm:"foreignKey:VibeID"`
	Files []CutFile `json:"files,omitempty" gorm:"foreignKey:CutID"`
}

func (Cut) TableName() string {
	return "cuts"
}
