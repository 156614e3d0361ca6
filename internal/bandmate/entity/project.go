package entity

import "time"

// Project 项目实体（一张"专辑"级的协作空间）
type Project struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Slug        string     `json:"slug" gorm:"size:128;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Description string     `json:"description" gorm:"type:text"`
	CoverURL    string     `json:"cover_url" gorm:"size:512"`
	OwnerID     string     `json:"owner_id" gorm:"size:32;not null;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Owner   *User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Members []ProjectMember `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	Vibes   []Vibe          `json:"vibes,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember 项目成员（成员关系实时决定活动可见性）
type ProjectMember struct {
	ProjectID string    `json:"project_id" gorm:"primaryKey;size:32"`
	UserID    string    `json:"user_id" gorm:"primaryKey;size:32"`
	AddedBy   string    `json:"added_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`

	// 关联
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

// 邀请状态
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation 项目邀请（邮件投递，token 接受）
type Invitation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;index"`
	Email     string    `json:"email" gorm:"size:128;not null"`
	Token     string    `json:"-" gorm:"size:36;not null;uniqueIndex"`
	InvitedBy string    `json:"invited_by" gorm:"size:32;not null"`
	Status    string    `json:"status" gorm:"size:16;not null;default:pending"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Inviter *User    `json:"inviter,omitempty" gorm:"foreignKey:InvitedBy"`
}

func (Invitation) TableName() string {
	return "invitations"
}
