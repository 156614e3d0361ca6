package entity

import "time"

// Role 全局角色（封闭枚举，所有权限判断走 IsAdmin）
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// IsAdmin 管理员可见所有项目
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Valid 角色是否合法
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User 用户实体
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Email        string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128"`
	GoogleID     string     `json:"-" gorm:"size:64;index"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	AvatarURL    string     `json:"avatar_url" gorm:"size:512"`
	Role         Role       `json:"role" gorm:"size:16;not null;default:MEMBER"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// RefreshToken 刷新令牌（轮换使用，登出时整体吊销）
type RefreshToken struct {
	JTI       string     `json:"jti" gorm:"primaryKey;size:36"`
	UserID    string     `json:"user_id" gorm:"size:32;not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
