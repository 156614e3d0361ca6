package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// ActivityType 活动类型（封闭枚举）
type ActivityType string

const (
	ActivityProjectCreated ActivityType = "project_created"
	ActivityMemberAdded    ActivityType = "member_added"
	ActivityVibeCreated    ActivityType = "vibe_created"
	ActivityCutCreated     ActivityType = "cut_created"
	ActivityCutMoved       ActivityType = "cut_moved"
	ActivityFileUploaded   ActivityType = "file_uploaded"
	ActivityCommentAdded   ActivityType = "comment_added"
	ActivityLyricsUpdated  ActivityType = "lyrics_updated"
	ActivityFileShared     ActivityType = "file_shared"
)

// Activity 项目活动记录，创建后不可变
// 可见性在查询时按成员关系实时计算，不做快照
type Activity struct {
	ID           string       `json:"id" gorm:"primaryKey;size:32"`
	Type         ActivityType `json:"type" gorm:"size:32;not null;index"`
	ActorID      string       `json:"actor_id" gorm:"size:32;not null"`
	ProjectID    string       `json:"project_id" gorm:"size:32;not null;index"`
	Metadata     JSONB        `json:"metadata" gorm:"type:jsonb"`
	ResourceLink string       `json:"resource_link" gorm:"size:512"`
	CreatedAt    time.Time    `json:"created_at" gorm:"index"`

	// 关联
	Actor *User `json:"actor,omitempty" gorm:"foreignKey:ActorID"`

	// 查询时派生，不落库
	IsRead bool `json:"is_read" gorm:"-"`
}

func (Activity) TableName() string {
	return "activities"
}

// ActivityRead 已读标记，(activity, user) 唯一，缺行即未读
type ActivityRead struct {
	ActivityID string    `json:"activity_id" gorm:"primaryKey;size:32"`
	UserID     string    `json:"user_id" gorm:"primaryKey;size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityRead) TableName() string {
	return "activity_reads"
}

// ActivityDismiss 按用户隐藏标记，可撤销，不影响已读状态
type ActivityDismiss struct {
	ActivityID string    `json:"activity_id" gorm:"primaryKey;size:32"`
	UserID     string    `json:"user_id" gorm:"primaryKey;size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityDismiss) TableName() string {
	return "activity_dismissals"
}

// ActivityMeta 活动元数据的带标签联合：每种活动类型一个变体，
// 生产方按类型填充编译期可检查的字段，消费方按 type 解析
type ActivityMeta interface {
	ActivityType() ActivityType
	Payload() JSONB
}

// ProjectCreatedMeta project_created
type ProjectCreatedMeta struct {
	ProjectName string
}

func (m ProjectCreatedMeta) ActivityType() ActivityType { return ActivityProjectCreated }
func (m ProjectCreatedMeta) Payload() JSONB {
	return JSONB{"projectName": m.ProjectName}
}

// MemberAddedMeta member_added
type MemberAddedMeta struct {
	MemberName  string
	ProjectName string
}

func (m MemberAddedMeta) ActivityType() ActivityType { return ActivityMemberAdded }
func (m MemberAddedMeta) Payload() JSONB {
	return JSONB{"memberName": m.MemberName, "projectName": m.ProjectName}
}

// VibeCreatedMeta vibe_created
type VibeCreatedMeta struct {
	VibeName    string
	ProjectName string
}

func (m VibeCreatedMeta) ActivityType() ActivityType { return ActivityVibeCreated }
func (m VibeCreatedMeta) Payload() JSONB {
	return JSONB{"vibeName": m.VibeName, "projectName": m.ProjectName}
}

// CutCreatedMeta cut_created
type CutCreatedMeta struct {
	CutName     string
	VibeName    string
	ProjectName string
}

func (m CutCreatedMeta) ActivityType() ActivityType { return ActivityCutCreated }
func (m CutCreatedMeta) Payload() JSONB {
	return JSONB{"cutName": m.CutName, "vibeName": m.VibeName, "projectName": m.ProjectName}
}

// CutMovedMeta cut_moved
type CutMovedMeta struct {
	CutName     string
	FromVibe    string
	ToVibe      string
	ProjectName string
}

func (m CutMovedMeta) ActivityType() ActivityType { return ActivityCutMoved }
func (m CutMovedMeta) Payload() JSONB {
	return JSONB{"cutName": m.CutName, "fromVibe": m.FromVibe, "toVibe": m.ToVibe, "projectName": m.ProjectName}
}

// FileUploadedMeta file_uploaded
type FileUploadedMeta struct {
	FileName    string
	CutName     string
	ProjectName string
}

func (m FileUploadedMeta) ActivityType() ActivityType { return ActivityFileUploaded }
func (m FileUploadedMeta) Payload() JSONB {
	return JSONB{"fileName": m.FileName, "cutName": m.CutName, "projectName": m.ProjectName}
}

// CommentAddedMeta comment_added
type CommentAddedMeta struct {
	CutName     string
	VibeName    string
	ProjectName string
	IsReply     bool
	CommentID   string
}

func (m CommentAddedMeta) ActivityType() ActivityType { return ActivityCommentAdded }
func (m CommentAddedMeta) Payload() JSONB {
	return JSONB{
		"cutName":     m.CutName,
		"vibeName":    m.VibeName,
		"projectName": m.ProjectName,
		"isReply":     m.IsReply,
		"commentId":   m.CommentID,
	}
}

// LyricsUpdatedMeta lyrics_updated
type LyricsUpdatedMeta struct {
	CutName     string
	ProjectName string
}

func (m LyricsUpdatedMeta) ActivityType() ActivityType { return ActivityLyricsUpdated }
func (m LyricsUpdatedMeta) Payload() JSONB {
	return JSONB{"cutName": m.CutName, "projectName": m.ProjectName}
}

// FileSharedMeta file_shared
type FileSharedMeta struct {
	FileName    string
	ProjectName string
}

func (m FileSharedMeta) ActivityType() ActivityType { return ActivityFileShared }
func (m FileSharedMeta) Payload() JSONB {
	return JSONB{"fileName": m.FileName, "projectName": m.ProjectName}
}
