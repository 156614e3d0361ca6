package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User         *UserRepository
	RefreshToken *RefreshTokenRepository
	Project      *ProjectRepository
	Invitation   *InvitationRepository
	Vibe         *VibeRepository
	Cut          *CutRepository
	File         *FileRepository
	Comment      *CommentRepository
	Activity     *ActivityRepository
	Notification *NotificationRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		Project:      NewProjectRepository(db),
		Invitation:   NewInvitationRepository(db),
		Vibe:         NewVibeRepository(db),
		Cut:          NewCutRepository(db),
		File:         NewFileRepository(db),
		Comment:      NewCommentRepository(db),
		Activity:     NewActivityRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
