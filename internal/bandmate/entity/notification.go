package entity

import "time"

// NotificationType 通知级别
type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationWarning NotificationType = "WARNING"
	NotificationError   NotificationType = "ERROR"
)

// Valid 是否为合法级别
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification 个人通知，归属唯一收件人，区别于项目共享的活动流
type Notification struct {
	ID           string           `json:"id" gorm:"primaryKey;size:32"`
	RecipientID  string           `json:"recipient_id" gorm:"size:32;not null;index"`
	Type         NotificationType `json:"type" gorm:"size:16;not null;default:INFO"`
	Title        string           `json:"title" gorm:"size:256;not null"`
	Message      string           `json:"message" gorm:"type:text"`
	ResourceLink string           `json:"resource_link" gorm:"size:512"`
	IsRead       bool             `json:"is_read" gorm:"not null;default:false"`
	EmailSent    bool             `json:"email_sent" gorm:"not null;default:false"`
	CreatedAt    time.Time        `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
